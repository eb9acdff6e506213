// Package normalize produces the canonical bounded-resolution JPEG for an
// admitted image. JPEG has no alpha, so transparency is flattened onto white;
// the untouched source is kept in the originals stage by the caller.
package normalize

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"studio/internal/domain"
	"studio/internal/imageformat"
)

// Config bounds the normalized output.
type Config struct {
	MaxDimension int
	MinDimension int
	Quality      int
}

// DefaultConfig returns 2048px max, 512px min, quality 90.
func DefaultConfig() Config {
	return Config{MaxDimension: 2048, MinDimension: 512, Quality: 90}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxDimension <= 0 {
		c.MaxDimension = def.MaxDimension
	}
	if c.MinDimension <= 0 {
		c.MinDimension = def.MinDimension
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = def.Quality
	}
	return c
}

// Result describes one normalization.
type Result struct {
	Original  domain.Dimensions `json:"original"`
	Processed domain.Dimensions `json:"processed"`
	Format    string            `json:"format"`
	Elapsed   time.Duration     `json:"-"`
}

// Normalizer resizes and re-encodes images.
type Normalizer struct {
	cfg Config
}

func New(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg.withDefaults()}
}

func (n *Normalizer) Config() Config { return n.cfg }

// Check applies the pre-resize rules: supported format and a shorter side of
// at least MinDimension.
func (n *Normalizer) Check(info imageformat.Info) error {
	if !imageformat.IsSupported(info.Format) {
		return domain.Validationf("unsupported format %q", info.Format)
	}
	if info.Shorter() < n.cfg.MinDimension {
		return domain.Validationf("image too small: %dx%d, shorter side must be at least %dpx",
			info.Width, info.Height, n.cfg.MinDimension)
	}
	return nil
}

// Normalize reads src, fits it inside MaxDimension without enlarging,
// flattens any transparency onto white and writes a JPEG to dst. The result
// is not re-checked against MinDimension after resizing.
func (n *Normalizer) Normalize(ctx context.Context, src, dst string) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	info, err := imageformat.Probe(src)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, domain.NotFoundf("%s", filepath.Base(src))
		}
		return Result{}, domain.Validationf("unreadable image: %v", err)
	}
	if err := n.Check(info); err != nil {
		return Result{}, err
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, domain.Validationf("unreadable image: %v", err)
	}
	orig := img.Bounds()

	if orig.Dx() > n.cfg.MaxDimension || orig.Dy() > n.cfg.MaxDimension {
		img = imaging.Fit(img, n.cfg.MaxDimension, n.cfg.MaxDimension, imaging.Lanczos)
	}
	out := flatten(img)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Result{}, fmt.Errorf("normalize: ensure directory: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return Result{}, fmt.Errorf("normalize: create output: %w", err)
	}
	err = imaging.Encode(f, out, imaging.JPEG, imaging.JPEGQuality(n.cfg.Quality))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return Result{}, fmt.Errorf("normalize: encode: %w", err)
	}
	st, err := os.Stat(dst)
	if err != nil {
		return Result{}, fmt.Errorf("normalize: stat output: %w", err)
	}

	b := out.Bounds()
	return Result{
		Original:  domain.Dimensions{Width: orig.Dx(), Height: orig.Dy(), Bytes: info.Bytes},
		Processed: domain.Dimensions{Width: b.Dx(), Height: b.Dy(), Bytes: st.Size()},
		Format:    info.Format,
		Elapsed:   time.Since(start),
	}, nil
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
