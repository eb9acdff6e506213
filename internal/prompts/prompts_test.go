package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptFallbacks(t *testing.T) {
	lib := Default()
	if got := lib.Prompt("shoes", "elegant"); !strings.Contains(got, "marble pedestal") {
		t.Fatalf("shoes/elegant = %q", got)
	}
	if got, want := lib.Prompt("shoes", "neon"), lib.Prompt("shoes", "studio"); got != want {
		t.Fatalf("unknown style should fall back to studio")
	}
	if got, want := lib.Prompt("furniture", "lifestyle"), lib.Prompt("clothing", "lifestyle"); got != want {
		t.Fatalf("unknown category should fall back to clothing")
	}
	if got := lib.Prompt(" Accessories ", "LIFESTYLE"); !strings.Contains(got, "accessory") {
		t.Fatalf("lookup should be case-insensitive, got %q", got)
	}
}

func TestTableCoversAllPairs(t *testing.T) {
	lib := Default()
	cats := lib.Categories()
	if strings.Join(cats, ",") != "accessories,clothing,shoes" {
		t.Fatalf("categories = %v", cats)
	}
	for _, c := range cats {
		if strings.Join(lib.Styles(c), ",") != "elegant,lifestyle,studio" {
			t.Fatalf("styles for %s = %v", c, lib.Styles(c))
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Default().Label("shoes", "elegant"); got != "Elegant Shoes" {
		t.Fatalf("Label = %q", got)
	}
	if got := Default().Label("", ""); got != "Studio Clothing" {
		t.Fatalf("Label defaults = %q", got)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	yml := `negative: "lowres, watermark"
templates:
  shoes:
    studio: "custom shoe studio prompt"
  bags:
    studio: "bag on white"
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lib, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if lib.Prompt("shoes", "studio") != "custom shoe studio prompt" {
		t.Fatalf("override not applied")
	}
	if !strings.Contains(lib.Prompt("shoes", "elegant"), "marble") {
		t.Fatalf("untouched entries must survive")
	}
	if lib.Prompt("bags", "elegant") != "bag on white" {
		t.Fatalf("new category should fall back to its studio style")
	}
	if lib.Negative() != "lowres, watermark" {
		t.Fatalf("negative = %q", lib.Negative())
	}
	if Default().Prompt("shoes", "studio") == "custom shoe studio prompt" {
		t.Fatalf("overrides leaked into the built-in table")
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("templates: [unclosed"), 0o644)
	if _, err := LoadFile(bad); err == nil {
		t.Fatalf("expected parse error")
	}
	lib, err := LoadFile("")
	if err != nil || lib == nil {
		t.Fatalf("empty path should give defaults: %v", err)
	}
}
