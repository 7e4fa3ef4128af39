package store

import (
	"fmt"
	"os"
	"sort"
)

// FileInfo describes one entry in the served file root.
type FileInfo struct {
	Name  string
	Size  int64
	IsDir bool
}

// FileStore lists the contents of the served file root. Listings hit the
// filesystem on every call so external changes show up without a reload.
type FileStore struct {
	root string
}

// NewFileStore serves listings from the given directory. An empty root
// yields empty listings rather than an error, for servers run without a
// file area.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the configured file root.
func (s *FileStore) Root() string { return s.root }

// List returns the root's entries sorted by name. Dotfiles are skipped.
func (s *FileStore) List() ([]FileInfo, error) {
	if s.root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("store: listing %s: %w", s.root, err)
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if len(e.Name()) > 0 && e.Name()[0] == '.' {
			continue
		}
		fi := FileInfo{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil {
			fi.Size = info.Size()
		}
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
