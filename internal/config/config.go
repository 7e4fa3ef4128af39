package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the daemon's TOML configuration.
type Config struct {
	ServerName string `toml:"server_name"`
	Listen     string `toml:"listen"`

	// MaxPayloadBytes caps reassembled transaction payloads.
	MaxPayloadBytes int `toml:"max_payload_bytes"`
	// WriteTimeoutSeconds bounds one outbound frame write. Zero disables.
	WriteTimeoutSeconds int `toml:"write_timeout_seconds"`
	// PushQueueDepth caps pending server pushes per connection.
	PushQueueDepth int `toml:"push_queue_depth"`

	// FilesRoot is the directory served by the file listing. Empty
	// disables the file area.
	FilesRoot string `toml:"files_root"`
	// AgreementFile is watched and hot-reloaded; empty means the static
	// Agreement text is used as-is.
	AgreementFile string `toml:"agreement_file"`
	Agreement     string `toml:"agreement"`
	BannerID      uint32 `toml:"banner_id"`

	NewsCategories []string  `toml:"news_categories"`
	Accounts       []Account `toml:"accounts"`

	Admin AdminConfig `toml:"admin"`
}

// Account is one login entry. The password hash is an encoded argon2id
// string, producible with `hubbubd hash`.
type Account struct {
	Login        string `toml:"login"`
	PasswordHash string `toml:"password_hash"`
}

// AdminConfig tunes the optional HTTP admin surface.
type AdminConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// WriteTimeout returns the configured write timeout as a duration.
func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// Load reads, defaults, and validates a config file.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ServerName == "" {
		c.ServerName = "hubbub"
	}
	if c.Listen == "" {
		c.Listen = ":5500"
	}
	if c.MaxPayloadBytes <= 0 {
		c.MaxPayloadBytes = 1 << 20
	}
	if c.PushQueueDepth <= 0 {
		c.PushQueueDepth = 64
	}
	if len(c.NewsCategories) == 0 {
		c.NewsCategories = []string{"General"}
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":9090"
	}
}

// Validate rejects configurations the daemon cannot serve.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.ServerName) == "" {
		return fmt.Errorf("config missing server_name")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("config missing listen address")
	}
	if cfg.WriteTimeoutSeconds < 0 {
		return fmt.Errorf("write_timeout_seconds must not be negative")
	}
	for i, a := range cfg.Accounts {
		if strings.TrimSpace(a.Login) == "" {
			return fmt.Errorf("accounts[%d] missing login", i)
		}
		if !strings.HasPrefix(a.PasswordHash, "$argon2id$") {
			return fmt.Errorf("accounts[%d] (%s): password_hash is not an argon2id hash", i, a.Login)
		}
	}
	for i, name := range cfg.NewsCategories {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("news_categories[%d] is empty", i)
		}
		if strings.Contains(name, "/") {
			return fmt.Errorf("news_categories[%d] (%s): category names cannot contain '/'", i, name)
		}
	}
	if cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.Addr) == "" {
		return fmt.Errorf("admin enabled without addr")
	}
	return nil
}
