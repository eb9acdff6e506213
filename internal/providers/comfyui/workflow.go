package comfyui

import (
	"encoding/json"
	"strings"
)

// Link wires a node input to output slot Slot of node Node. It encodes as
// the two-element array the engine expects.
type Link struct {
	Node string
	Slot int
}

func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.Node, l.Slot})
}

// Node is one operation in a workflow graph.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Workflow maps node ids to nodes.
type Workflow map[string]Node

// Node ids shared by both graphs.
const (
	NodeSampler    = "3"
	NodeCheckpoint = "4"
	NodeLatent     = "5"
	NodePositive   = "6"
	NodeNegative   = "7"
	NodeDecode     = "8"
	NodeSave       = "9"
	NodeLoadImage  = "10"
	NodeEncode     = "11"
)

// Sampler defaults.
const (
	DefaultSteps     = 20
	DefaultCFG       = 7.0
	DefaultSampler   = "euler"
	DefaultScheduler = "normal"
	DefaultNegative  = "blurry, low quality, distorted, watermark, text, deformed"
)

// Sampling holds the KSampler parameters common to both graphs.
type Sampling struct {
	Checkpoint     string
	Prompt         string
	NegativePrompt string
	Seed           int64
	Steps          int
	CFG            float64
	Sampler        string
	Scheduler      string
	FilenamePrefix string
}

func (s Sampling) withDefaults() Sampling {
	if s.Steps <= 0 {
		s.Steps = DefaultSteps
	}
	if s.CFG <= 0 {
		s.CFG = DefaultCFG
	}
	if s.Sampler == "" {
		s.Sampler = DefaultSampler
	}
	if s.Scheduler == "" {
		s.Scheduler = DefaultScheduler
	}
	if strings.TrimSpace(s.NegativePrompt) == "" {
		s.NegativePrompt = DefaultNegative
	}
	if s.FilenamePrefix == "" {
		s.FilenamePrefix = "studio"
	}
	return s
}

// TextToImage parameterizes the empty-latent graph.
type TextToImage struct {
	Sampling
	Width     int
	Height    int
	BatchSize int
}

// ImageToImage parameterizes the variation graph. Image is the engine-side
// name returned by UploadImage.
type ImageToImage struct {
	Sampling
	Image   string
	Denoise float64
}

// BuildTextToImage returns checkpoint -> encode -> empty latent -> sample ->
// decode -> save.
func BuildTextToImage(p TextToImage) Workflow {
	s := p.Sampling.withDefaults()
	if p.Width <= 0 {
		p.Width = 512
	}
	if p.Height <= 0 {
		p.Height = 512
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 1
	}
	wf := baseGraph(s, 1.0, Link{NodeLatent, 0})
	wf[NodeLatent] = Node{
		ClassType: "EmptyLatentImage",
		Inputs: map[string]any{
			"width":      p.Width,
			"height":     p.Height,
			"batch_size": p.BatchSize,
		},
	}
	return wf
}

// BuildImageToImage loads the uploaded reference, encodes it to latent space
// and samples with the given denoise strength.
func BuildImageToImage(p ImageToImage) Workflow {
	s := p.Sampling.withDefaults()
	denoise := p.Denoise
	if denoise <= 0 || denoise > 1 {
		denoise = 0.75
	}
	wf := baseGraph(s, denoise, Link{NodeEncode, 0})
	wf[NodeLoadImage] = Node{
		ClassType: "LoadImage",
		Inputs:    map[string]any{"image": p.Image},
	}
	wf[NodeEncode] = Node{
		ClassType: "VAEEncode",
		Inputs: map[string]any{
			"pixels": Link{NodeLoadImage, 0},
			"vae":    Link{NodeCheckpoint, 2},
		},
	}
	return wf
}

func baseGraph(s Sampling, denoise float64, latent Link) Workflow {
	return Workflow{
		NodeCheckpoint: {
			ClassType: "CheckpointLoaderSimple",
			Inputs:    map[string]any{"ckpt_name": s.Checkpoint},
		},
		NodePositive: {
			ClassType: "CLIPTextEncode",
			Inputs:    map[string]any{"text": s.Prompt, "clip": Link{NodeCheckpoint, 1}},
		},
		NodeNegative: {
			ClassType: "CLIPTextEncode",
			Inputs:    map[string]any{"text": s.NegativePrompt, "clip": Link{NodeCheckpoint, 1}},
		},
		NodeSampler: {
			ClassType: "KSampler",
			Inputs: map[string]any{
				"seed":         s.Seed,
				"steps":        s.Steps,
				"cfg":          s.CFG,
				"sampler_name": s.Sampler,
				"scheduler":    s.Scheduler,
				"denoise":      denoise,
				"model":        Link{NodeCheckpoint, 0},
				"positive":     Link{NodePositive, 0},
				"negative":     Link{NodeNegative, 0},
				"latent_image": latent,
			},
		},
		NodeDecode: {
			ClassType: "VAEDecode",
			Inputs: map[string]any{
				"samples": Link{NodeSampler, 0},
				"vae":     Link{NodeCheckpoint, 2},
			},
		},
		NodeSave: {
			ClassType: "SaveImage",
			Inputs: map[string]any{
				"filename_prefix": s.FilenamePrefix,
				"images":          Link{NodeDecode, 0},
			},
		},
	}
}
