// Package imageformat registers the decoders the pipeline accepts and probes
// files for their format and dimensions.
package imageformat

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Supported lists the input formats the normalizer accepts.
var Supported = []string{"jpeg", "png", "webp", "tiff", "gif"}

// IsSupported reports whether format is one of Supported.
func IsSupported(format string) bool {
	for _, f := range Supported {
		if f == format {
			return true
		}
	}
	return false
}

// Info is the header-level description of an image file.
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int64  `json:"bytes"`
}

// Shorter returns the length of the shorter side.
func (i Info) Shorter() int {
	if i.Width < i.Height {
		return i.Width
	}
	return i.Height
}

// Longer returns the length of the longer side.
func (i Info) Longer() int {
	if i.Width > i.Height {
		return i.Width
	}
	return i.Height
}

// Probe reads only the image header of the file at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	info, err := ProbeReader(f)
	if err != nil {
		return Info{}, err
	}
	info.Bytes = st.Size()
	return info, nil
}

// ProbeReader decodes the header from r.
func ProbeReader(r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("imageformat: decode header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("imageformat: zero dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
