package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"studio/internal/catalog"
	"studio/internal/domain"
	"studio/internal/domain/jsoncfg"
	"studio/internal/events"
	"studio/internal/providers/comfyui"
)

// GenerateText renders req.Count images from a text prompt. A failed engine
// health check aborts the request before anything is submitted.
func (s *Service) GenerateText(ctx context.Context, req jsoncfg.TextRequest) (*domain.BatchResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.Validationf("%v", err)
	}
	if err := s.engine.Health(ctx); err != nil {
		return nil, err
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = s.prompts.Prompt(req.Category, req.Style)
	}
	negative := s.negative(req.NegativePrompt)
	seeds := comfyui.Seeds(*req.Seed, req.Count, s.rand)

	batchID := uuid.NewString()
	result := domain.NewBatchResult(batchID, len(seeds))
	for i, seed := range seeds {
		wf := comfyui.BuildTextToImage(comfyui.TextToImage{
			Sampling: comfyui.Sampling{
				Checkpoint:     s.checkpoint,
				Prompt:         prompt,
				NegativePrompt: negative,
				Seed:           seed,
				FilenamePrefix: "studio_text",
			},
			Width:  req.Width,
			Height: req.Height,
		})
		name := fmt.Sprintf("text_%d_%s", seed, uuid.NewString()[:8])
		item := s.generateOne(ctx, batchID, fmt.Sprintf("#%d", i+1), name, seed, wf)
		item.Details["prompt"] = prompt
		item.Details["width"] = req.Width
		item.Details["height"] = req.Height
		result.Add(item)
	}
	s.logger.Info().Str("batch_id", batchID).Int("processed", result.Processed).Int("failed", result.Failed).
		Msg("pipeline: text generation finished")
	return result, nil
}

// GenerateVariations renders req.Count image-to-image variations of a staged
// base image. The reference is looked up in resized, then no_bg, then
// uploads.
func (s *Service) GenerateVariations(ctx context.Context, req jsoncfg.VariationRequest) (*domain.BatchResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.Validationf("%v", err)
	}
	if err := catalog.ValidName(req.Filename); err != nil {
		return nil, err
	}
	stage, source, err := s.resolveReference(ctx, req.Filename)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Health(ctx); err != nil {
		return nil, err
	}

	data, err := s.cat.Read(ctx, stage, source)
	if err != nil {
		return nil, err
	}
	engineName, err := s.engine.UploadImage(ctx, source, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = s.prompts.Prompt(req.Category, req.Style)
	}
	negative := s.negative(req.NegativePrompt)
	seeds := comfyui.Seeds(*req.Seed, req.Count, s.rand)
	sourceID, _ := s.index.Lookup(ctx, stage, source)
	base := domain.BaseName(source)

	batchID := uuid.NewString()
	result := domain.NewBatchResult(batchID, len(seeds))
	for i, seed := range seeds {
		wf := comfyui.BuildImageToImage(comfyui.ImageToImage{
			Sampling: comfyui.Sampling{
				Checkpoint:     s.checkpoint,
				Prompt:         prompt,
				NegativePrompt: negative,
				Seed:           seed,
				FilenamePrefix: "studio_variation",
			},
			Image:   engineName,
			Denoise: *req.Strength,
		})
		name := fmt.Sprintf("%s_var_%d_%s", base, seed, uuid.NewString()[:8])
		item := s.generateOne(ctx, batchID, fmt.Sprintf("%s#%d", source, i+1), name, seed, wf)
		item.Details["prompt"] = prompt
		item.Details["strength"] = *req.Strength
		item.Details["style"] = s.prompts.Label(req.Category, req.Style)
		if sourceID != "" {
			item.Details["source_artifact_id"] = sourceID
		}
		result.Add(item)
	}
	s.logger.Info().Str("batch_id", batchID).Str("source", source).Int("processed", result.Processed).
		Int("failed", result.Failed).Msg("pipeline: variations finished")
	return result, nil
}

// generateOne submits wf, waits for it and stores the first output image in
// the generated stage as stem plus the engine's extension.
func (s *Service) generateOne(ctx context.Context, batchID, label, stem string, seed int64, wf comfyui.Workflow) domain.ItemResult {
	start := s.now()
	seedCopy := seed
	item := domain.ItemResult{Filename: label, Seed: &seedCopy, Details: map[string]any{}}
	log := s.logger.With().Str("batch_id", batchID).Int64("seed", seed).Logger()

	job := &domain.GenerationJob{Seed: seed, Status: domain.JobStatusPending, SubmittedAt: start.UTC()}
	job.Prompt, _ = wf[comfyui.NodePositive].Inputs["text"].(string)
	job.NegativePrompt, _ = wf[comfyui.NodeNegative].Inputs["text"].(string)
	item.Details["job"] = job
	finish := func(st domain.JobStatus) {
		job.Status = st
		job.FinishedAt = s.now().UTC()
	}

	promptID, err := s.engine.QueuePrompt(ctx, wf)
	if err != nil {
		finish(domain.JobStatusFailed)
		item.Fail(err)
		log.Warn().Err(err).Msg("pipeline: prompt submission failed")
		return item
	}
	job.PromptID = promptID
	job.Status = domain.JobStatusRunning
	item.Details["prompt_id"] = promptID

	entry, err := s.engine.WaitForCompletion(ctx, promptID, s.genTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			finish(domain.JobStatusTimedOut)
		} else {
			finish(domain.JobStatusFailed)
		}
		item.Fail(err)
		log.Warn().Err(err).Str("prompt_id", promptID).Msg("pipeline: generation did not complete")
		return item
	}
	images := entry.Images()
	if len(images) == 0 {
		finish(domain.JobStatusFailed)
		item.Fail(fmt.Errorf("%w: engine reported no images for %s", domain.ErrDependency, promptID))
		return item
	}
	finish(domain.JobStatusCompleted)
	job.OutputFilename = images[0].Filename

	data, err := s.engine.View(ctx, images[0])
	if err != nil {
		item.Fail(err)
		return item
	}

	ext := strings.ToLower(filepath.Ext(images[0].Filename))
	if ext == "" {
		ext = ".png"
	}
	name := stem + ext
	if _, err := s.cat.Put(ctx, domain.StageGenerated, name, data); err != nil {
		item.Fail(err)
		return item
	}

	id := catalog.NewArtifactID()
	item.Success = true
	item.ArtifactID = id
	item.Output = name
	item.Details["engine_filename"] = images[0].Filename
	item.DurationMS = s.since(start)
	s.record(ctx, &item, id, domain.StageGenerated, name, events.TypeGenerated, batchID)
	return item
}

func (s *Service) negative(requested string) string {
	if requested != "" {
		return requested
	}
	return s.prompts.Negative()
}

func (s *Service) resolveReference(ctx context.Context, name string) (domain.Stage, string, error) {
	if processed, err := s.resolveProcessed(ctx, name); err == nil {
		return domain.StageResized, processed, nil
	}
	stage, err := s.locate(ctx, name, domain.StageBackgroundRemoved, domain.StageUploaded)
	if err != nil {
		return "", "", err
	}
	return stage, name, nil
}
