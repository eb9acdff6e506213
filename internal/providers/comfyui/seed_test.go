package comfyui

import (
	"math/rand/v2"
	"testing"
)

func TestSeedsPinnedOffsets(t *testing.T) {
	got := Seeds(1000, 3, nil)
	want := []int64{1000, 1001, 1002}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Seeds(1000,3) = %v, want %v", got, want)
		}
	}
	if zero := Seeds(0, 2, nil); zero[0] != 0 || zero[1] != 1 {
		t.Fatalf("seed 0 is pinned, got %v", zero)
	}
}

func TestSeedsRandomInRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	got := Seeds(RandomSeed, 2, rng)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	for _, s := range got {
		if s < 0 || s >= MaxSeed {
			t.Fatalf("seed %d out of range", s)
		}
	}
	if got[0] == got[1] {
		t.Fatalf("random seeds should differ: %v", got)
	}
	if Seeds(RandomSeed, 0, rng) != nil {
		t.Fatalf("count 0 yields nil")
	}
}
