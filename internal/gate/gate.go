// Package gate decides whether a candidate file may enter normalization.
package gate

import (
	"fmt"
	"image"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/disintegration/imaging"

	"studio/internal/domain"
	"studio/internal/imageformat"
)

// HashGrid is the side length of the downsampled grid that is hashed.
const HashGrid = 8

// IsCorrupted reports whether the file at path cannot be fully decoded as an
// image. Any failure counts, including a missing file.
func IsCorrupted(path string) bool {
	_, _, err := decode(path)
	return err != nil
}

// ContentHash returns the perceptual hash of the image at path.
func ContentHash(path string) (string, error) {
	img, _, err := decode(path)
	if err != nil {
		return "", err
	}
	return HashImage(img), nil
}

// HashImage shrinks img to an 8x8 grayscale grid and digests the 64 intensity
// bytes with xxhash.
func HashImage(img image.Image) string {
	small := imaging.Grayscale(imaging.Resize(img, HashGrid, HashGrid, imaging.Box))
	pix := make([]byte, 0, HashGrid*HashGrid)
	for y := 0; y < HashGrid; y++ {
		row := small.Pix[y*small.Stride:]
		for x := 0; x < HashGrid; x++ {
			pix = append(pix, row[x*4])
		}
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(pix))
}

func decode(path string) (image.Image, imageformat.Info, error) {
	info, err := imageformat.Probe(path)
	if err != nil {
		return nil, info, err
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, info, err
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, info, fmt.Errorf("gate: zero dimensions")
	}
	return img, info, nil
}

// Verdict is what the gate learned about an admitted file.
type Verdict struct {
	Hash string
	Info imageformat.Info
}

// Gate admits files for one batch. The set of seen hashes lives only as long
// as the Gate; duplicates across batches are not detected.
type Gate struct {
	seen map[string]string
}

func New() *Gate {
	return &Gate{seen: map[string]string{}}
}

// Admit checks path (reported as filename) for corruption, then for a hash
// already seen in this batch. The first file with a hash wins.
func (g *Gate) Admit(path, filename string) (Verdict, error) {
	if _, err := os.Stat(path); err != nil {
		return Verdict{}, domain.NotFoundf("%s", filename)
	}
	img, info, err := decode(path)
	if err != nil {
		return Verdict{Info: info}, domain.Validationf("corrupted: %s", filename)
	}
	hash := HashImage(img)
	v := Verdict{Hash: hash, Info: info}
	if first, ok := g.seen[hash]; ok {
		return v, &domain.DuplicateError{Hash: hash, Filename: filename, FirstOf: first}
	}
	g.seen[hash] = filename
	return v, nil
}

// Seen returns how many distinct hashes were admitted.
func (g *Gate) Seen() int { return len(g.seen) }
