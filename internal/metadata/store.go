// Package metadata keeps one JSON processing record beside each normalized
// image.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"

	"studio/internal/catalog"
	"studio/internal/domain"
)

// Store reads and writes <base>_meta.json sidecars in the resized stage.
type Store struct {
	cat   catalog.Catalog
	stage domain.Stage
}

func NewStore(cat catalog.Catalog) *Store {
	return &Store{cat: cat, stage: domain.StageResized}
}

// Load returns the record for base. A missing sidecar is ErrNotFound.
func (s *Store) Load(ctx context.Context, base string) (domain.ProcessingRecord, error) {
	var rec domain.ProcessingRecord
	data, err := s.cat.Read(ctx, s.stage, domain.MetaName(base))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("metadata: decode %s: %w", domain.MetaName(base), err)
	}
	return rec, nil
}

// Create writes a fresh record, replacing any earlier one for the same base.
func (s *Store) Create(ctx context.Context, base string, rec domain.ProcessingRecord) error {
	return s.write(ctx, base, rec)
}

// Merge loads the record for base, applies fn and writes it back. Fields fn
// leaves alone are preserved.
func (s *Store) Merge(ctx context.Context, base string, fn func(*domain.ProcessingRecord)) error {
	rec, err := s.Load(ctx, base)
	if err != nil {
		return err
	}
	fn(&rec)
	return s.write(ctx, base, rec)
}

func (s *Store) write(ctx context.Context, base string, rec domain.ProcessingRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}
	if _, err := s.cat.Put(ctx, s.stage, domain.MetaName(base), data); err != nil {
		return fmt.Errorf("metadata: write %s: %w", domain.MetaName(base), err)
	}
	return nil
}
