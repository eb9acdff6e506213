package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

func testConfig(t *testing.T) *infra.Config {
	t.Helper()
	return &infra.Config{
		AppEnv:                "test",
		StoragePath:           t.TempDir(),
		WebhookBaseURL:        "http://127.0.0.1:1",
		RembgBaseURL:          "http://127.0.0.1:1",
		ComfyUIBaseURL:        "http://127.0.0.1:1",
		NormalizeMaxDimension: 2048,
		NormalizeMinDimension: 512,
		NormalizeQuality:      90,
	}
}

func TestNewLocalOnly(t *testing.T) {
	cfg := testConfig(t)
	logger := infra.DiscardLogger()

	rt, err := New(context.Background(), cfg, &logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	for _, stage := range domain.Stages {
		if fi, err := os.Stat(filepath.Join(cfg.StoragePath, string(stage))); err != nil || !fi.IsDir() {
			t.Fatalf("stage dir %s missing: %v", stage, err)
		}
	}
	st, err := rt.Service.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Services.Rembg.Reachable || st.Services.ComfyUI.Reachable {
		t.Fatalf("closed ports must report unreachable: %+v", st.Services)
	}
}

func TestNewBadPromptFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PromptTemplatesFile = filepath.Join(t.TempDir(), "missing.yaml")
	logger := infra.DiscardLogger()

	if _, err := New(context.Background(), cfg, &logger); err == nil {
		t.Fatalf("expected error for missing prompt file")
	}
}

func TestNewLogsWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.ComfyUIBaseURL = "http://comfy.internal:8188/"
	cfg.GenerationTimeout = 90 * time.Second
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	rt, err := New(context.Background(), cfg, &logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()

	var line struct {
		Message string  `json:"message"`
		Storage string  `json:"storage"`
		ComfyUI string  `json:"comfyui"`
		Rembg   string  `json:"rembg"`
		Budget  float64 `json:"generation_budget"`
	}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if err := json.Unmarshal(raw, &line); err == nil && line.Message == "pipeline wired" {
			break
		}
	}
	if line.Message != "pipeline wired" {
		t.Fatalf("wiring line missing: %s", buf.String())
	}
	if line.Storage != cfg.StoragePath || line.ComfyUI != "http://comfy.internal:8188" || line.Rembg != cfg.RembgBaseURL {
		t.Fatalf("line = %+v", line)
	}
	if line.Budget != 90000 {
		t.Fatalf("generation budget = %v ms", line.Budget)
	}
}
