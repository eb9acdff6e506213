package catalog

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"studio/internal/domain"
	"studio/internal/storage"
)

func newTestCatalog(t *testing.T) (*FileCatalog, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cat, err := NewFileCatalog(store)
	if err != nil {
		t.Fatalf("NewFileCatalog: %v", err)
	}
	return cat, store
}

func TestFileCatalogCreatesStageDirs(t *testing.T) {
	cat, _ := newTestCatalog(t)
	for _, stage := range domain.Stages {
		p, err := cat.Path(stage, "x.jpg")
		if err != nil {
			t.Fatalf("Path(%s): %v", stage, err)
		}
		dir := p[:len(p)-len("/x.jpg")]
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("stage dir %s missing: %v", dir, err)
		}
	}
}

func TestFileCatalogListNewestFirst(t *testing.T) {
	cat, _ := newTestCatalog(t)
	ctx := context.Background()

	if _, err := cat.Put(ctx, domain.StageResized, "old_processed.jpg", make([]byte, 1536)); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	if _, err := cat.Put(ctx, domain.StageResized, "new_processed.jpg", []byte("abc")); err != nil {
		t.Fatalf("Put new: %v", err)
	}
	if _, err := cat.Put(ctx, domain.StageResized, "new_meta.json", []byte("{}")); err != nil {
		t.Fatalf("Put meta: %v", err)
	}
	oldPath, _ := cat.Path(domain.StageResized, "old_processed.jpg")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	items, err := cat.List(ctx, domain.StageResized)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (sidecar hidden), got %d", len(items))
	}
	if items[0].Filename != "new_processed.jpg" || items[1].Filename != "old_processed.jpg" {
		t.Fatalf("unexpected order: %s, %s", items[0].Filename, items[1].Filename)
	}
	if items[1].SizeHuman != "1.50 KB" || items[1].Format != "jpeg" {
		t.Fatalf("unexpected annotation: %+v", items[1])
	}

	n, err := cat.Count(ctx, domain.StageResized)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestFileCatalogNotFoundAndInvalidNames(t *testing.T) {
	cat, _ := newTestCatalog(t)
	ctx := context.Background()

	if _, err := cat.Stat(ctx, domain.StageResized, "missing.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Stat missing err = %v, want ErrNotFound", err)
	}
	if _, err := cat.Read(ctx, domain.StageUploaded, "missing.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Read missing err = %v, want ErrNotFound", err)
	}
	for _, bad := range []string{"", "../x.jpg", "a/b.jpg", ".hidden"} {
		if _, err := cat.Put(ctx, domain.StageUploaded, bad, []byte("x")); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Put(%q) err = %v, want ErrValidation", bad, err)
		}
	}
	if _, err := cat.List(ctx, domain.Stage("elsewhere")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("List unknown stage err = %v", err)
	}
}

func TestFileCatalogCopyAndDelete(t *testing.T) {
	cat, _ := newTestCatalog(t)
	ctx := context.Background()

	if _, err := cat.Put(ctx, domain.StageUploaded, "shirt.png", []byte("png-bytes")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	art, err := cat.Copy(ctx, domain.StageUploaded, domain.StageOriginalBackup, "shirt.png")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if art.Stage != domain.StageOriginalBackup || art.Size != int64(len("png-bytes")) {
		t.Fatalf("unexpected copy result: %+v", art)
	}
	if err := cat.Delete(ctx, domain.StageUploaded, "shirt.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := cat.Delete(ctx, domain.StageUploaded, "shirt.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Delete err = %v, want ErrNotFound", err)
	}
	if _, err := cat.Stat(ctx, domain.StageOriginalBackup, "shirt.png"); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
}

func TestFormatOf(t *testing.T) {
	cases := map[string]string{"a.JPG": "jpeg", "b.jpeg": "jpeg", "c.tif": "tiff", "d.webp": "webp", "e": ""}
	for in, want := range cases {
		if got := FormatOf(in); got != want {
			t.Fatalf("FormatOf(%q) = %q, want %q", in, got, want)
		}
	}
}
