package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreList(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"readme.txt", "archive.zip", ".hidden"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "uploads"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := NewFileStore(root).List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("len = %d, want 3 (dotfiles skipped): %v", len(files), files)
	}
	if files[0].Name != "archive.zip" || files[1].Name != "readme.txt" || files[2].Name != "uploads" {
		t.Fatalf("order = %v", files)
	}
	if !files[2].IsDir {
		t.Fatal("uploads not marked as directory")
	}
	if files[0].Size != 1 {
		t.Fatalf("size = %d, want 1", files[0].Size)
	}
}

func TestFileStoreEmptyRoot(t *testing.T) {
	files, err := NewFileStore("").List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if files != nil {
		t.Fatalf("files = %v, want nil", files)
	}
}

func TestFileStoreMissingRoot(t *testing.T) {
	if _, err := NewFileStore(filepath.Join(t.TempDir(), "gone")).List(); err == nil {
		t.Fatal("no error for missing root")
	}
}
