package imageformat

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestProbeFormats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	dir := t.TempDir()

	var pngBuf, gifBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	if err := gif.Encode(&gifBuf, img, nil); err != nil {
		t.Fatalf("gif: %v", err)
	}
	for name, data := range map[string][]byte{"a.png": pngBuf.Bytes(), "b.gif": gifBuf.Bytes()} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		info, err := Probe(p)
		if err != nil {
			t.Fatalf("Probe(%s): %v", name, err)
		}
		if info.Width != 40 || info.Height != 30 || info.Bytes != int64(len(data)) {
			t.Fatalf("Probe(%s) = %+v", name, info)
		}
		if !IsSupported(info.Format) {
			t.Fatalf("format %q should be supported", info.Format)
		}
		if info.Shorter() != 30 || info.Longer() != 40 {
			t.Fatalf("sides = %d/%d", info.Shorter(), info.Longer())
		}
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	if _, err := ProbeReader(bytes.NewReader([]byte("definitely not an image"))); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ProbeReader(bytes.NewReader(nil)); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if IsSupported("bmp") {
		t.Fatalf("bmp must not be supported")
	}
}
