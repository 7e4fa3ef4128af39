// Package testlog wires the shared logger into test output.
package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"hubbub/internal/logging"
)

// Start configures test logging and returns a logger tagged with the
// test name.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	log := logging.ConfigureTests("hubbub-test")
	return log.With().Str("test", t.Name()).Logger()
}
