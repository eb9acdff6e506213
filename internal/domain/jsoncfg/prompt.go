package jsoncfg

import (
	"fmt"
	"strings"
)

// TextRequest is the body of a text-to-image generation call.
type TextRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Category       string `json:"category"`
	Style          string `json:"style"`
	Seed           *int64 `json:"seed"`
	Count          int    `json:"count"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// VariationRequest is the body of an image-to-image variation call.
type VariationRequest struct {
	Filename       string   `json:"filename"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt"`
	Category       string   `json:"category"`
	Style          string   `json:"style"`
	Strength       *float64 `json:"strength"`
	Seed           *int64   `json:"seed"`
	Count          int      `json:"count"`
}

const (
	// DefaultCount is used when the request omits count.
	DefaultCount = 1
	// MaxCount bounds how many images one request may hold the connection for.
	MaxCount = 4
	// DefaultDimension is the latent size for text-to-image.
	DefaultDimension = 512
	// MaxDimension caps the latent size.
	MaxDimension = 2048
	// MinDimension is the smallest latent size accepted.
	MinDimension = 64
	// DefaultStrength is the variation denoise strength.
	DefaultStrength = 0.75
	// DefaultStyle is the fallback prompt style.
	DefaultStyle = "studio"
	// DefaultCategory is the fallback prompt category.
	DefaultCategory = "clothing"
	// RandomSeed asks for a random seed per image.
	RandomSeed int64 = -1
)

// Normalize applies server defaults and limits.
func (r *TextRequest) Normalize() {
	if r == nil {
		return
	}
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.NegativePrompt = strings.TrimSpace(r.NegativePrompt)
	r.Category = normalizeKey(r.Category, DefaultCategory)
	r.Style = normalizeKey(r.Style, DefaultStyle)
	r.Count = clampCount(r.Count)
	if r.Seed == nil {
		seed := RandomSeed
		r.Seed = &seed
	}
	r.Width = clampDimension(r.Width)
	r.Height = clampDimension(r.Height)
}

// Validate checks the normalized request.
func (r TextRequest) Validate() error {
	if r.Seed != nil && *r.Seed < RandomSeed {
		return fmt.Errorf("seed must be -1 or a non-negative integer")
	}
	return nil
}

// Normalize applies server defaults and limits.
func (r *VariationRequest) Normalize() {
	if r == nil {
		return
	}
	r.Filename = strings.TrimSpace(r.Filename)
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.NegativePrompt = strings.TrimSpace(r.NegativePrompt)
	r.Category = normalizeKey(r.Category, DefaultCategory)
	r.Style = normalizeKey(r.Style, DefaultStyle)
	r.Count = clampCount(r.Count)
	if r.Seed == nil {
		seed := RandomSeed
		r.Seed = &seed
	}
	if r.Strength == nil {
		strength := DefaultStrength
		r.Strength = &strength
	}
}

// Validate checks the normalized request.
func (r VariationRequest) Validate() error {
	if r.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if r.Strength != nil && (*r.Strength <= 0 || *r.Strength > 1) {
		return fmt.Errorf("strength must be in (0, 1]")
	}
	if r.Seed != nil && *r.Seed < RandomSeed {
		return fmt.Errorf("seed must be -1 or a non-negative integer")
	}
	return nil
}

func normalizeKey(v, fallback string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}

func clampCount(n int) int {
	if n <= 0 {
		return DefaultCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

func clampDimension(n int) int {
	if n <= 0 {
		return DefaultDimension
	}
	if n > MaxDimension {
		n = MaxDimension
	}
	// latent space works in 8px blocks
	n -= n % 8
	if n < MinDimension {
		n = MinDimension
	}
	return n
}
