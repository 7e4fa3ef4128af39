package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hubbub.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `server_name = "test-hub"`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerName != "test-hub" {
		t.Fatalf("server_name = %q", cfg.ServerName)
	}
	if cfg.Listen != ":5500" {
		t.Fatalf("listen default = %q", cfg.Listen)
	}
	if cfg.MaxPayloadBytes != 1<<20 {
		t.Fatalf("max_payload_bytes default = %d", cfg.MaxPayloadBytes)
	}
	if cfg.PushQueueDepth != 64 {
		t.Fatalf("push_queue_depth default = %d", cfg.PushQueueDepth)
	}
	if len(cfg.NewsCategories) != 1 || cfg.NewsCategories[0] != "General" {
		t.Fatalf("news_categories default = %v", cfg.NewsCategories)
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server_name = "hub"
listen = ":5600"
write_timeout_seconds = 10
news_categories = ["General", "Support"]

[[accounts]]
login = "guest"
password_hash = "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"

[admin]
enabled = true
addr = ":9191"
cors_origins = ["http://localhost:3000"]
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WriteTimeout().Seconds() != 10 {
		t.Fatalf("write timeout = %v", cfg.WriteTimeout())
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].Login != "guest" {
		t.Fatalf("accounts = %+v", cfg.Accounts)
	}
	if !cfg.Admin.Enabled || cfg.Admin.Addr != ":9191" {
		t.Fatalf("admin = %+v", cfg.Admin)
	}
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plaintext password",
			body: "[[accounts]]\nlogin = \"guest\"\npassword_hash = \"guest\"\n",
			want: "argon2id",
		},
		{
			name: "account without login",
			body: "[[accounts]]\npassword_hash = \"$argon2id$x\"\n",
			want: "missing login",
		},
		{
			name: "nested category",
			body: "news_categories = [\"a/b\"]\n",
			want: "cannot contain",
		},
		{
			name: "negative timeout",
			body: "write_timeout_seconds = -1\n",
			want: "negative",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "gone.toml")); err == nil {
		t.Fatal("no error for missing file")
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatal("template clobbered existing file")
	}
	// The template's placeholder hash passes shape validation only.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if cfg.ServerName != "hubbub" {
		t.Fatalf("server_name = %q", cfg.ServerName)
	}
}
