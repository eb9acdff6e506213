// Package bootstrap turns a loaded Config into a wired pipeline.Service. The
// optional backends (Postgres index, Kafka events, MinIO mirror) are chosen
// by whether their config keys are set.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"studio/internal/catalog"
	"studio/internal/events"
	"studio/internal/infra"
	"studio/internal/normalize"
	"studio/internal/pipeline"
	"studio/internal/prompts"
	"studio/internal/providers/comfyui"
	"studio/internal/providers/rembg"
	"studio/internal/providers/webhook"
	"studio/internal/storage"
)

// Runtime is a wired service plus the resources it holds open.
type Runtime struct {
	Service *pipeline.Service
	closers []func() error
}

// Close releases every backend in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func New(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Runtime, error) {
	rt := &Runtime{}
	fail := func(err error) (*Runtime, error) {
		_ = rt.Close()
		return nil, err
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		return fail(fmt.Errorf("bootstrap: storage: %w", err))
	}
	cat, err := catalog.NewFileCatalog(store)
	if err != nil {
		return fail(fmt.Errorf("bootstrap: catalog: %w", err))
	}

	index, err := newIndex(ctx, cfg, logger, store, rt)
	if err != nil {
		return fail(err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fail(fmt.Errorf("bootstrap: kafka: %w", err))
		}
		rt.closers = append(rt.closers, kp.Close)
		publisher = kp
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("pipeline events enabled")
	}

	var mirror storage.Mirror = storage.NopMirror{}
	if cfg.MinIOEndpoint != "" {
		m, err := storage.NewMinIOMirror(ctx, storage.MinIOOptions{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return fail(fmt.Errorf("bootstrap: minio: %w", err))
		}
		mirror = m
		logger.Info().Str("endpoint", cfg.MinIOEndpoint).Str("bucket", cfg.MinIOBucket).Msg("artifact mirror enabled")
	}

	library := prompts.Default()
	if cfg.PromptTemplatesFile != "" {
		if library, err = prompts.LoadFile(cfg.PromptTemplatesFile); err != nil {
			return fail(fmt.Errorf("bootstrap: prompts: %w", err))
		}
	}

	remover, err := rembg.NewClient(rembg.Options{BaseURL: cfg.RembgBaseURL, Logger: logger})
	if err != nil {
		return fail(err)
	}
	notifier, err := webhook.NewClient(webhook.Options{
		BaseURL:    cfg.WebhookBaseURL,
		HealthPath: cfg.WebhookHealthPath,
		UploadPath: cfg.WebhookUploadPath,
		Logger:     logger,
	})
	if err != nil {
		return fail(err)
	}
	engine, err := comfyui.NewClient(comfyui.Options{
		BaseURL:      cfg.ComfyUIBaseURL,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.GenerationTimeout,
	})
	if err != nil {
		return fail(err)
	}

	logger.Info().
		Str("storage", cat.Root()).
		Str("rembg", remover.BaseURL()).
		Str("comfyui", engine.BaseURL()).
		Dur("generation_budget", engine.MaxWait()).
		Msg("pipeline wired")

	rt.Service = pipeline.New(pipeline.Options{
		Catalog: cat,
		Index:   index,
		Normalizer: normalize.New(normalize.Config{
			MaxDimension: cfg.NormalizeMaxDimension,
			MinDimension: cfg.NormalizeMinDimension,
			Quality:      cfg.NormalizeQuality,
		}),
		Remover:           remover,
		Engine:            engine,
		Notifier:          notifier,
		Prompts:           library,
		Events:            publisher,
		Mirror:            mirror,
		Logger:            logger,
		Checkpoint:        cfg.ComfyCheckpoint,
		GenerationTimeout: cfg.GenerationTimeout,
	})
	return rt, nil
}

func newIndex(ctx context.Context, cfg *infra.Config, logger *infra.Logger, store *storage.FileStore, rt *Runtime) (catalog.Index, error) {
	if cfg.DatabaseURL == "" {
		idx, err := catalog.NewJSONIndex(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: index: %w", err)
		}
		return idx, nil
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
	if err := infra.Migrate(pool, *logger); err != nil {
		return nil, fmt.Errorf("bootstrap: migrate: %w", err)
	}
	logger.Info().Msg("artifact index backed by postgres")
	return catalog.NewPGIndex(infra.NewSQLRunner(pool, *logger)), nil
}
