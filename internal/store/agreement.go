package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Agreement holds the text shown to clients before login. Reads are
// lock-free; the watcher swaps the value in place on file changes.
type Agreement struct {
	text atomic.Value
}

// NewAgreement seeds the agreement with the given text.
func NewAgreement(text string) *Agreement {
	a := &Agreement{}
	a.text.Store(text)
	return a
}

// Text returns the current agreement text.
func (a *Agreement) Text() string {
	return a.text.Load().(string)
}

// SetText replaces the agreement text.
func (a *Agreement) SetText(text string) {
	a.text.Store(text)
}

// LoadFile replaces the agreement text from a file.
func (a *Agreement) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	a.SetText(string(data))
	return nil
}

// Watch reloads the agreement whenever the file changes, until the context
// is cancelled. The file's directory is watched, not the file itself, so
// editors that replace the file atomically still trigger a reload.
func (a *Agreement) Watch(ctx context.Context, path string, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	log = log.With().Str("component", "agreement").Str("path", path).Logger()

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				if err := a.LoadFile(path); err != nil {
					log.Warn().Err(err).Msg("agreement reload failed")
					continue
				}
				log.Info().Msg("agreement reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("agreement watcher error")
			}
		}
	}()
	return nil
}
