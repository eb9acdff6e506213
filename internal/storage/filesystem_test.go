package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
)

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"uploads/a.jpg":      "uploads/a.jpg",
		"/uploads/a.jpg":     "uploads/a.jpg",
		"./uploads//a.jpg":   "uploads/a.jpg",
		"uploads\\b.png":     "uploads/b.png",
		"uploads/../x/c.png": "x/c.png",
	}
	for in, want := range cases {
		got, err := sanitizeKey(in)
		if err != nil {
			t.Fatalf("sanitizeKey(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", in, got, want)
		}
	}
	for _, bad := range []string{"", "   ", "..", "../etc/passwd", "uploads/../../x"} {
		if _, err := sanitizeKey(bad); err == nil {
			t.Fatalf("sanitizeKey(%q) expected error", bad)
		}
	}
}

func TestFileStoreWriteReadRemove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "/resized/a_processed.jpg", []byte("data"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "resized/a_processed.jpg" {
		t.Fatalf("key = %q", key)
	}
	if _, err := os.Stat(filepath.Join(store.BasePath(), "resized", "a_processed.jpg")); err != nil {
		t.Fatalf("file not on disk: %v", err)
	}

	data, err := store.Read(ctx, key)
	if err != nil || string(data) != "data" {
		t.Fatalf("Read = %q, %v", data, err)
	}

	n, err := store.WriteFrom(ctx, "resized/b.jpg", strings.NewReader("streamed"))
	if err != nil || n != 8 {
		t.Fatalf("WriteFrom = %d, %v", n, err)
	}

	files, err := store.ListFiles("resized")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListFiles len = %d, want 2", len(files))
	}

	if err := store.Remove(key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Read(ctx, key); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Read after remove err = %v, want ErrNotExist", err)
	}
}

func TestFileStoreListMissingDir(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	files, err := store.ListFiles("nothing-here")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}

func TestFileStoreWriteFromFailureRemovesPartial(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	errRead := errors.New("read failed")
	r := io.MultiReader(strings.NewReader("half"), iotest.ErrReader(errRead))
	if _, err := store.WriteFrom(context.Background(), "uploads/a.png", r); !errors.Is(err, errRead) {
		t.Fatalf("WriteFrom err = %v", err)
	}
	full, _ := store.Path("uploads/a.png")
	if _, err := os.Stat(full); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial file left behind: %v", err)
	}
}
