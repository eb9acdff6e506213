package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"
)

// Entry is one file to place in an archive.
type Entry struct {
	Name     string
	Path     string
	Modified time.Time
}

// WriteArchive streams entries from disk into a zip written to w. Entries
// whose file vanished since listing are skipped and returned by name.
func WriteArchive(w io.Writer, entries []Entry) ([]string, error) {
	zw := zip.NewWriter(w)
	var skipped []string
	for _, entry := range entries {
		f, err := os.Open(entry.Path)
		if err != nil {
			if os.IsNotExist(err) {
				skipped = append(skipped, entry.Name)
				continue
			}
			_ = zw.Close()
			return skipped, fmt.Errorf("zip: open %s: %w", entry.Name, err)
		}
		hdr := &zip.FileHeader{Name: entry.Name, Method: zip.Store, Modified: entry.Modified}
		dst, err := zw.CreateHeader(hdr)
		if err == nil {
			_, err = io.Copy(dst, f)
		}
		f.Close()
		if err != nil {
			_ = zw.Close()
			return skipped, fmt.Errorf("zip: add %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return skipped, fmt.Errorf("zip: finish: %w", err)
	}
	return skipped, nil
}
