package comfyui

import "math/rand/v2"

// RandomSeed asks for a fresh seed per image.
const RandomSeed int64 = -1

// MaxSeed bounds randomly drawn seeds to [0, MaxSeed).
const MaxSeed int64 = 1 << 32

// Rand is the subset of *rand.Rand used for seeds.
type Rand interface {
	Int64N(n int64) int64
}

type globalRand struct{}

func (globalRand) Int64N(n int64) int64 { return rand.Int64N(n) }

// DefaultRand draws from the runtime-seeded global source.
var DefaultRand Rand = globalRand{}

// Seeds returns count seeds. A pinned base yields base, base+1, ...; the
// RandomSeed sentinel draws each seed independently.
func Seeds(base int64, count int, rng Rand) []int64 {
	if count <= 0 {
		return nil
	}
	if rng == nil {
		rng = DefaultRand
	}
	out := make([]int64, count)
	for i := range out {
		if base == RandomSeed {
			out[i] = rng.Int64N(MaxSeed)
			continue
		}
		out[i] = base + int64(i)
	}
	return out
}
