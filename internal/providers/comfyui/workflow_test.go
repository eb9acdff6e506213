package comfyui

import (
	"encoding/json"
	"testing"
)

func decodeWorkflow(t *testing.T, wf Workflow) map[string]map[string]any {
	t.Helper()
	raw, err := json.Marshal(wf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func inputs(t *testing.T, graph map[string]map[string]any, id string) map[string]any {
	t.Helper()
	node, ok := graph[id]
	if !ok {
		t.Fatalf("node %s missing", id)
	}
	return node["inputs"].(map[string]any)
}

func assertLink(t *testing.T, v any, node string, slot int) {
	t.Helper()
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected link array, got %#v", v)
	}
	if arr[0] != node || int(arr[1].(float64)) != slot {
		t.Fatalf("link = %v, want [%s %d]", arr, node, slot)
	}
}

func TestBuildTextToImage(t *testing.T) {
	graph := decodeWorkflow(t, BuildTextToImage(TextToImage{
		Sampling: Sampling{Checkpoint: "model.safetensors", Prompt: "red dress", Seed: 42},
		Width:    768,
		Height:   1024,
	}))
	if len(graph) != 7 {
		t.Fatalf("text graph has %d nodes, want 7", len(graph))
	}
	if graph[NodeSampler]["class_type"] != "KSampler" || graph[NodeLatent]["class_type"] != "EmptyLatentImage" {
		t.Fatalf("unexpected node classes")
	}
	ks := inputs(t, graph, NodeSampler)
	if ks["seed"].(float64) != 42 || ks["denoise"].(float64) != 1.0 || ks["steps"].(float64) != DefaultSteps {
		t.Fatalf("sampler inputs = %v", ks)
	}
	assertLink(t, ks["latent_image"], NodeLatent, 0)
	assertLink(t, ks["positive"], NodePositive, 0)
	assertLink(t, ks["model"], NodeCheckpoint, 0)
	latent := inputs(t, graph, NodeLatent)
	if latent["width"].(float64) != 768 || latent["height"].(float64) != 1024 || latent["batch_size"].(float64) != 1 {
		t.Fatalf("latent inputs = %v", latent)
	}
	if neg := inputs(t, graph, NodeNegative)["text"]; neg != DefaultNegative {
		t.Fatalf("negative = %v", neg)
	}
	assertLink(t, inputs(t, graph, NodeSave)["images"], NodeDecode, 0)
	if inputs(t, graph, NodeCheckpoint)["ckpt_name"] != "model.safetensors" {
		t.Fatalf("checkpoint not wired")
	}
}

func TestBuildImageToImage(t *testing.T) {
	graph := decodeWorkflow(t, BuildImageToImage(ImageToImage{
		Sampling: Sampling{Prompt: "studio shot", NegativePrompt: "noise"},
		Image:    "shirt_processed.jpg",
	}))
	if _, ok := graph[NodeLatent]; ok {
		t.Fatalf("variation graph must not use an empty latent")
	}
	ks := inputs(t, graph, NodeSampler)
	if ks["denoise"].(float64) != 0.75 {
		t.Fatalf("default denoise = %v, want 0.75", ks["denoise"])
	}
	assertLink(t, ks["latent_image"], NodeEncode, 0)
	enc := inputs(t, graph, NodeEncode)
	assertLink(t, enc["pixels"], NodeLoadImage, 0)
	assertLink(t, enc["vae"], NodeCheckpoint, 2)
	if inputs(t, graph, NodeLoadImage)["image"] != "shirt_processed.jpg" {
		t.Fatalf("load image not wired")
	}

	custom := decodeWorkflow(t, BuildImageToImage(ImageToImage{Image: "x.png", Denoise: 0.4}))
	if inputs(t, custom, NodeSampler)["denoise"].(float64) != 0.4 {
		t.Fatalf("custom denoise not applied")
	}
}
