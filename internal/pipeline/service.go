// Package pipeline sequences the gate, normalizer, background remover and
// generative engine over batches of staged files. Items are processed one at
// a time in input order; an item's failure is recorded on its result and the
// batch continues.
package pipeline

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/catalog"
	"studio/internal/domain"
	"studio/internal/events"
	"studio/internal/infra"
	"studio/internal/metadata"
	"studio/internal/normalize"
	"studio/internal/prompts"
	"studio/internal/providers/comfyui"
	"studio/internal/providers/webhook"
	"studio/internal/storage"
)

// BackgroundRemover is the segmentation service.
type BackgroundRemover interface {
	Health(ctx context.Context) error
	RemoveBackground(ctx context.Context, filename string, image io.Reader) ([]byte, error)
}

// Engine is the generative workflow engine.
type Engine interface {
	Health(ctx context.Context) error
	QueuePrompt(ctx context.Context, wf comfyui.Workflow) (string, error)
	WaitForCompletion(ctx context.Context, promptID string, maxWait time.Duration) (*comfyui.HistoryEntry, error)
	View(ctx context.Context, img comfyui.OutputImage) ([]byte, error)
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
	Queue(ctx context.Context) (comfyui.QueueStatus, error)
	Checkpoints(ctx context.Context) ([]string, error)
}

// Notifier is the workflow-automation webhook.
type Notifier interface {
	Health(ctx context.Context) error
	NotifyUpload(ctx context.Context, env webhook.UploadEnvelope) error
}

// Options wires a Service. Catalog, Index, Normalizer, Remover, Engine and
// Notifier are required; the rest fall back to no-op or built-in defaults.
type Options struct {
	Catalog    catalog.Catalog
	Index      catalog.Index
	Metadata   *metadata.Store
	Normalizer *normalize.Normalizer
	Remover    BackgroundRemover
	Engine     Engine
	Notifier   Notifier
	Prompts    *prompts.Library
	Events     events.Publisher
	Mirror     storage.Mirror
	Logger     *infra.Logger

	Checkpoint        string
	GenerationTimeout time.Duration
	Rand              comfyui.Rand
	Now               func() time.Time
}

// Service runs pipeline stages. It holds no per-batch state between calls.
type Service struct {
	cat        catalog.Catalog
	index      catalog.Index
	meta       *metadata.Store
	normalizer *normalize.Normalizer
	remover    BackgroundRemover
	engine     Engine
	notifier   Notifier
	prompts    *prompts.Library
	events     events.Publisher
	mirror     storage.Mirror
	logger     *infra.Logger

	checkpoint string
	genTimeout time.Duration
	rand       comfyui.Rand
	now        func() time.Time
}

func New(opts Options) *Service {
	s := &Service{
		cat:        opts.Catalog,
		index:      opts.Index,
		meta:       opts.Metadata,
		normalizer: opts.Normalizer,
		remover:    opts.Remover,
		engine:     opts.Engine,
		notifier:   opts.Notifier,
		prompts:    opts.Prompts,
		events:     opts.Events,
		mirror:     opts.Mirror,
		logger:     opts.Logger,
		checkpoint: opts.Checkpoint,
		genTimeout: opts.GenerationTimeout,
		rand:       opts.Rand,
		now:        opts.Now,
	}
	if s.meta == nil {
		s.meta = metadata.NewStore(s.cat)
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New(normalize.DefaultConfig())
	}
	if s.prompts == nil {
		s.prompts = prompts.Default()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.mirror == nil {
		s.mirror = storage.NopMirror{}
	}
	if s.logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		s.logger = &l
	}
	if s.checkpoint == "" {
		s.checkpoint = "v1-5-pruned-emaonly.safetensors"
	}
	if s.genTimeout <= 0 {
		s.genTimeout = comfyui.DefaultMaxWait
	}
	if s.rand == nil {
		s.rand = comfyui.DefaultRand
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// record runs the best-effort side effects for a produced artifact: index
// link, event and mirror. Failures become warnings on item.
func (s *Service) record(ctx context.Context, item *domain.ItemResult, id domain.ArtifactID, stage domain.Stage, filename, eventType, batchID string) {
	log := s.logger.With().Str("filename", filename).Str("stage", string(stage)).Logger()
	if id != "" {
		if err := s.index.Link(ctx, id, stage, filename); err != nil {
			log.Warn().Err(err).Msg("pipeline: index link failed")
			item.Warn("index link failed: " + err.Error())
		}
	}
	if eventType != "" {
		ev := events.Event{Type: eventType, ArtifactID: id, Filename: filename, Stage: stage, BatchID: batchID, At: s.now().UTC()}
		if err := s.events.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Msg("pipeline: event publish failed")
			item.Warn("event publish failed: " + err.Error())
		}
	}
	if s.mirror.Enabled() {
		p, err := s.cat.Path(stage, filename)
		if err == nil {
			err = s.mirror.Put(ctx, string(stage)+"/"+filename, p, contentType(filename))
		}
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: mirror failed")
			item.Warn("mirror failed: " + err.Error())
		}
	}
}

func (s *Service) since(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
