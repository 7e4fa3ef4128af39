package dispatch

import (
	"errors"
	"fmt"

	"hubbub/internal/protocol"
	"hubbub/internal/protocol/param"
)

// Sentinel errors handlers return to select the reply error code.
var (
	// ErrUnsupported maps to the unknown-type code. Handlers use it for
	// operations on paths or objects the server does not serve.
	ErrUnsupported = errors.New("dispatch: unsupported operation")
	// ErrInvalidPayload maps to the invalid-payload code.
	ErrInvalidPayload = errors.New("dispatch: invalid payload")
	// ErrDenied maps to the unknown-type code, matching how unauthorized
	// and failed-login requests are reported on the wire.
	ErrDenied = errors.New("dispatch: access denied")
	// ErrForbidden maps to the insufficient-privileges code. The session is
	// authenticated but the account lacks the required privilege bit.
	ErrForbidden = errors.New("dispatch: insufficient privileges")
)

// Errorf wraps a sentinel with request context.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}

// codeFor maps a handler error to its wire error code. Anything not
// explicitly classified is an internal error.
func codeFor(err error) uint32 {
	switch {
	case errors.Is(err, ErrUnsupported), errors.Is(err, ErrDenied):
		return protocol.ErrCodeUnknownType
	case errors.Is(err, ErrForbidden):
		return protocol.ErrCodeInsufficient
	case errors.Is(err, ErrInvalidPayload),
		errors.Is(err, param.ErrShortRecord),
		errors.Is(err, param.ErrTrailingBytes),
		errors.Is(err, param.ErrDuplicateField),
		errors.Is(err, param.ErrMissingField):
		return protocol.ErrCodeInvalidPayload
	default:
		return protocol.ErrCodeInternal
	}
}
