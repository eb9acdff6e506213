package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"studio/internal/catalog"
	"studio/internal/domain"
	"studio/internal/events"
)

// RemoveBackgroundBatch sends normalized images to the segmentation service.
// With no filenames every processed image in the resized stage is used. The
// service must pass its health check before any item is attempted. Output is
// a PNG whose alpha is cut from the white-flattened processed JPEG.
func (s *Service) RemoveBackgroundBatch(ctx context.Context, filenames []string) (*domain.BatchResult, error) {
	if err := s.remover.Health(ctx); err != nil {
		return nil, err
	}
	if len(filenames) == 0 {
		listed, err := s.cat.List(ctx, domain.StageResized)
		if err != nil {
			return nil, err
		}
		for _, a := range listed {
			if strings.HasSuffix(a.Filename, domain.ProcessedSuffix) {
				filenames = append(filenames, a.Filename)
			}
		}
	}

	batchID := uuid.NewString()
	result := domain.NewBatchResult(batchID, len(filenames))
	log := s.logger.With().Str("batch_id", batchID).Logger()
	for _, name := range filenames {
		item := s.removeOne(ctx, batchID, name)
		if !item.Success {
			log.Warn().Str("filename", name).Str("kind", item.Kind).Msg(item.Error)
		}
		result.Add(item)
	}
	log.Info().Int("processed", result.Processed).Int("failed", result.Failed).Msg("pipeline: background batch finished")
	return result, nil
}

func (s *Service) removeOne(ctx context.Context, batchID, name string) domain.ItemResult {
	start := s.now()
	item := domain.ItemResult{Filename: name}
	if err := catalog.ValidName(name); err != nil {
		item.Fail(err)
		return item
	}
	source, err := s.resolveProcessed(ctx, name)
	if err != nil {
		item.Fail(err)
		return item
	}
	data, err := s.cat.Read(ctx, domain.StageResized, source)
	if err != nil {
		item.Fail(err)
		return item
	}
	out, err := s.remover.RemoveBackground(ctx, source, bytes.NewReader(data))
	if err != nil {
		item.Fail(err)
		return item
	}
	base := domain.BaseName(source)
	noBg := domain.NoBgName(base)
	if _, err := s.cat.Put(ctx, domain.StageBackgroundRemoved, noBg, out); err != nil {
		item.Fail(err)
		return item
	}

	elapsed := s.since(start)
	at := s.now().UTC()
	item.Success = true
	item.Output = noBg
	item.DurationMS = elapsed

	err = s.meta.Merge(ctx, base, func(rec *domain.ProcessingRecord) {
		rec.NoBgFilename = noBg
		rec.NoBgMillis = elapsed
		rec.NoBgAt = &at
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("filename", source).Msg("pipeline: metadata merge failed")
		item.Warn("metadata merge failed: " + err.Error())
	}

	id, err := s.index.Lookup(ctx, domain.StageResized, source)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		item.Warn("index lookup failed: " + err.Error())
	}
	item.ArtifactID = id
	s.record(ctx, &item, id, domain.StageBackgroundRemoved, noBg, events.TypeNoBg, batchID)
	return item
}

// resolveProcessed maps name to a file in the resized stage. It accepts the
// processed name itself or the upload name it was derived from.
func (s *Service) resolveProcessed(ctx context.Context, name string) (string, error) {
	candidates := []string{name}
	if !strings.HasSuffix(name, domain.ProcessedSuffix) {
		candidates = append(candidates, domain.ProcessedName(domain.BaseName(name)))
	}
	for _, c := range candidates {
		if _, err := s.cat.Stat(ctx, domain.StageResized, c); err == nil {
			return c, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	return "", domain.NotFoundf("%s is not in the %s stage", name, domain.StageResized)
}

