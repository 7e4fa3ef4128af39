// Package store holds the server-side domain state: accounts, the news
// board, the served file tree, and the agreement text.
package store

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrUnknownAccount  = errors.New("store: unknown account")
	ErrBadCredentials  = errors.New("store: bad credentials")
	ErrMalformedHash   = errors.New("store: malformed password hash")
	ErrUnsupportedHash = errors.New("store: unsupported hash algorithm")
)

// Argon2id parameters for newly minted hashes. Stored hashes carry their
// own parameters and may differ.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Account is a login credential pair. PasswordHash is an encoded argon2id
// hash, never a plaintext password.
type Account struct {
	Login        string
	PasswordHash string
}

// AccountStore resolves logins to accounts. The account set is fixed at
// construction, so lookups need no locking.
type AccountStore struct {
	accounts map[string]Account
}

// NewAccountStore indexes accounts by login. Later duplicates win, matching
// config-file override order.
func NewAccountStore(accounts []Account) *AccountStore {
	idx := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		idx[a.Login] = a
	}
	return &AccountStore{accounts: idx}
}

// Len returns the number of registered accounts.
func (s *AccountStore) Len() int { return len(s.accounts) }

// Authenticate verifies a login and password pair. Unknown logins and wrong
// passwords both return ErrBadCredentials so callers cannot distinguish
// them; hash corruption surfaces as its own error.
func (s *AccountStore) Authenticate(login, password string) (Account, error) {
	a, ok := s.accounts[login]
	if !ok {
		// Burn a verification anyway so unknown logins cost the same
		// as wrong passwords.
		_, _ = VerifyPassword(dummyHash, password)
		return Account{}, ErrBadCredentials
	}
	match, err := VerifyPassword(a.PasswordHash, password)
	if err != nil {
		return Account{}, err
	}
	if !match {
		return Account{}, ErrBadCredentials
	}
	return a, nil
}

// dummyHash keeps Authenticate constant-shape for unknown logins.
var dummyHash = HashPassword("!")

// HashPassword encodes a password with argon2id in the standard
// $argon2id$v=...$m=...,t=...,p=...$salt$hash form.
func HashPassword(password string) string {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		panic(fmt.Sprintf("store: reading random salt: %v", err))
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

// VerifyPassword checks a password against an encoded argon2id hash using a
// constant-time comparison.
func VerifyPassword(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return false, ErrMalformedHash
	}
	if parts[1] != "argon2id" {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedHash, parts[1])
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrMalformedHash
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: argon2 version %d", ErrUnsupportedHash, version)
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrMalformedHash
	}
	if time == 0 || memory == 0 || threads == 0 {
		return false, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedHash
	}
	got := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
