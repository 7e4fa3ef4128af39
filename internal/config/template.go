package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes the example configuration to path, refusing to
// clobber an existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Template returns the example configuration.
func Template() string { return template }

const template = `server_name = "hubbub"
listen = ":5500"

max_payload_bytes = 1048576
write_timeout_seconds = 30
push_queue_depth = 64

files_root = "/srv/hubbub/files"
agreement_file = "/srv/hubbub/agreement.txt"
banner_id = 0

news_categories = ["General", "Support"]

# Hash passwords with: hubbubd hash <password>
[[accounts]]
login = "guest"
password_hash = "$argon2id$v=19$m=65536,t=3,p=4$REPLACE$REPLACE"

[admin]
enabled = true
addr = ":9090"
cors_origins = ["http://localhost:3000"]
`
