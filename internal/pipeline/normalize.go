package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"studio/internal/catalog"
	"studio/internal/domain"
	"studio/internal/events"
	"studio/internal/gate"
	"studio/internal/imageformat"
)

// NormalizeBatch gates and normalizes the named uploads, or every upload
// when filenames is empty. Duplicate detection covers this call only.
func (s *Service) NormalizeBatch(ctx context.Context, filenames []string) (*domain.BatchResult, error) {
	if len(filenames) == 0 {
		listed, err := s.cat.List(ctx, domain.StageUploaded)
		if err != nil {
			return nil, err
		}
		for _, a := range listed {
			filenames = append(filenames, a.Filename)
		}
	}

	batchID := uuid.NewString()
	result := domain.NewBatchResult(batchID, len(filenames))
	g := gate.New()
	log := s.logger.With().Str("batch_id", batchID).Logger()
	log.Info().Int("files", len(filenames)).Msg("pipeline: normalize batch started")

	for _, name := range filenames {
		item := s.normalizeOne(ctx, g, batchID, name)
		if !item.Success {
			log.Warn().Str("filename", name).Str("kind", item.Kind).Msg(item.Error)
		}
		result.Add(item)
	}
	log.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Int("duplicates", result.Duplicates).
		Msg("pipeline: normalize batch finished")
	return result, nil
}

func (s *Service) normalizeOne(ctx context.Context, g *gate.Gate, batchID, name string) domain.ItemResult {
	start := s.now()
	item := domain.ItemResult{Filename: name}
	if err := ctx.Err(); err != nil {
		item.Fail(err)
		return item
	}
	if err := catalog.ValidName(name); err != nil {
		item.Fail(err)
		return item
	}
	src, err := s.cat.Path(domain.StageUploaded, name)
	if err != nil {
		item.Fail(err)
		return item
	}

	verdict, err := g.Admit(src, name)
	item.Hash = verdict.Hash
	if err != nil {
		item.Fail(err)
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			item.Details = map[string]any{"duplicate_of": dup.FirstOf}
		}
		return item
	}
	if err := s.normalizer.Check(verdict.Info); err != nil {
		item.Fail(err)
		return item
	}

	base := domain.BaseName(name)
	processed := domain.ProcessedName(base)
	dst, err := s.cat.Path(domain.StageResized, processed)
	if err != nil {
		item.Fail(err)
		return item
	}
	res, err := s.normalizer.Normalize(ctx, src, dst)
	if err != nil {
		item.Fail(err)
		return item
	}
	// The backup is taken only once a processed image exists.
	if _, err := s.cat.Copy(ctx, domain.StageUploaded, domain.StageOriginalBackup, name); err != nil {
		_ = s.cat.Delete(context.Background(), domain.StageResized, processed)
		item.Fail(err)
		return item
	}

	id, err := s.index.Lookup(ctx, domain.StageUploaded, name)
	if err != nil {
		id = catalog.NewArtifactID()
	}
	rec := domain.ProcessingRecord{
		ArtifactID:        id,
		OriginalFilename:  name,
		ProcessedFilename: processed,
		BatchID:           batchID,
		Original:          res.Original,
		Processed:         res.Processed,
		OriginalFormat:    res.Format,
		ContentHash:       verdict.Hash,
		ProcessingMillis:  res.Elapsed.Milliseconds(),
		ProcessedAt:       s.now().UTC(),
	}
	if err := s.meta.Create(ctx, base, rec); err != nil {
		item.Fail(err)
		return item
	}

	item.Success = true
	item.ArtifactID = id
	item.Output = processed
	item.Details = map[string]any{
		"original":  res.Original,
		"processed": res.Processed,
		"format":    res.Format,
		"metadata":  domain.MetaName(base),
	}
	s.record(ctx, &item, id, domain.StageUploaded, name, "", batchID)
	s.record(ctx, &item, id, domain.StageOriginalBackup, name, "", batchID)
	s.record(ctx, &item, id, domain.StageResized, processed, events.TypeNormalized, batchID)
	item.DurationMS = s.since(start)
	return item
}

// ValidationReport is the outcome of a validation-only check.
type ValidationReport struct {
	Filename  string           `json:"filename"`
	Stage     domain.Stage     `json:"stage"`
	Valid     bool             `json:"valid"`
	Corrupted bool             `json:"corrupted"`
	Hash      string           `json:"hash,omitempty"`
	Image     imageformat.Info `json:"image"`
	Reason    string           `json:"reason,omitempty"`
	Kind      string           `json:"kind,omitempty"`
}

// Validate runs the gate and the pre-resize checks against one staged file
// without writing anything. Uploads are searched first, then originals.
func (s *Service) Validate(ctx context.Context, filename string) (*ValidationReport, error) {
	if err := catalog.ValidName(filename); err != nil {
		return nil, err
	}
	stage, err := s.locate(ctx, filename, domain.StageUploaded, domain.StageOriginalBackup)
	if err != nil {
		return nil, err
	}
	p, err := s.cat.Path(stage, filename)
	if err != nil {
		return nil, err
	}
	report := &ValidationReport{Filename: filename, Stage: stage}
	if gate.IsCorrupted(p) {
		report.Corrupted = true
		report.Reason = "corrupted"
		report.Kind = domain.KindValidation
		return report, nil
	}
	if info, err := imageformat.Probe(p); err == nil {
		report.Image = info
	}
	if hash, err := gate.ContentHash(p); err == nil {
		report.Hash = hash
	}
	if err := s.normalizer.Check(report.Image); err != nil {
		report.Reason = err.Error()
		report.Kind = domain.Kind(err)
		return report, nil
	}
	report.Valid = true
	return report, nil
}

// locate returns the first of stages holding filename.
func (s *Service) locate(ctx context.Context, filename string, stages ...domain.Stage) (domain.Stage, error) {
	for _, st := range stages {
		_, err := s.cat.Stat(ctx, st, filename)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	return "", domain.NotFoundf("%s not found", filename)
}
