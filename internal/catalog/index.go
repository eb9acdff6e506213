package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
	"studio/internal/storage"
)

// Index maps an artifact id to the filename it has at each stage.
type Index interface {
	Link(ctx context.Context, id domain.ArtifactID, stage domain.Stage, filename string) error
	Links(ctx context.Context, id domain.ArtifactID) (map[domain.Stage]string, error)
	Lookup(ctx context.Context, stage domain.Stage, filename string) (domain.ArtifactID, error)
	Unlink(ctx context.Context, stage domain.Stage, filename string) error
}

// NewArtifactID returns a fresh random id.
func NewArtifactID() domain.ArtifactID {
	return domain.ArtifactID(uuid.NewString())
}

const indexKey = "index.json"

type indexFile struct {
	Artifacts map[domain.ArtifactID]map[domain.Stage]string `json:"artifacts"`
}

// JSONIndex keeps the whole index in memory and rewrites index.json on every
// change.
type JSONIndex struct {
	mu    sync.Mutex
	store *storage.FileStore
	links map[domain.ArtifactID]map[domain.Stage]string
}

// NewJSONIndex loads index.json from the store root if present.
func NewJSONIndex(ctx context.Context, store *storage.FileStore) (*JSONIndex, error) {
	idx := &JSONIndex{store: store, links: map[domain.ArtifactID]map[domain.Stage]string{}}
	data, err := store.Read(ctx, indexKey)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		return idx, nil
	case err != nil:
		return nil, err
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode index: %w", err)
	}
	if f.Artifacts != nil {
		idx.links = f.Artifacts
	}
	return idx, nil
}

func (x *JSONIndex) Link(ctx context.Context, id domain.ArtifactID, stage domain.Stage, filename string) error {
	if id == "" {
		return domain.Validationf("artifact id is required")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	// a filename belongs to one artifact per stage
	for other, stages := range x.links {
		if other != id && stages[stage] == filename {
			delete(stages, stage)
		}
	}
	stages, ok := x.links[id]
	if !ok {
		stages = map[domain.Stage]string{}
		x.links[id] = stages
	}
	stages[stage] = filename
	return x.flushLocked(ctx)
}

func (x *JSONIndex) Links(_ context.Context, id domain.ArtifactID) (map[domain.Stage]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	stages, ok := x.links[id]
	if !ok || len(stages) == 0 {
		return nil, domain.NotFoundf("artifact %s", id)
	}
	out := make(map[domain.Stage]string, len(stages))
	for k, v := range stages {
		out[k] = v
	}
	return out, nil
}

func (x *JSONIndex) Lookup(_ context.Context, stage domain.Stage, filename string) (domain.ArtifactID, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, stages := range x.links {
		if stages[stage] == filename {
			return id, nil
		}
	}
	return "", domain.NotFoundf("no artifact for %s/%s", stage, filename)
}

func (x *JSONIndex) Unlink(ctx context.Context, stage domain.Stage, filename string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, stages := range x.links {
		if stages[stage] == filename {
			delete(stages, stage)
			if len(stages) == 0 {
				delete(x.links, id)
			}
		}
	}
	return x.flushLocked(ctx)
}

func (x *JSONIndex) flushLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(indexFile{Artifacts: x.links}, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode index: %w", err)
	}
	if _, err := x.store.Write(ctx, indexKey, data); err != nil {
		return err
	}
	return nil
}

// PGIndex stores links in the artifact_links table.
type PGIndex struct {
	db infra.SQLExecutor
}

func NewPGIndex(db infra.SQLExecutor) *PGIndex {
	return &PGIndex{db: db}
}

func (p *PGIndex) Link(ctx context.Context, id domain.ArtifactID, stage domain.Stage, filename string) error {
	if id == "" {
		return domain.Validationf("artifact id is required")
	}
	if _, err := p.db.Exec(ctx, sqlinline.QDeleteArtifactLink, string(stage), filename); err != nil {
		return fmt.Errorf("catalog: clear link: %w", err)
	}
	if _, err := p.db.Exec(ctx, sqlinline.QUpsertArtifactLink, string(id), string(stage), filename); err != nil {
		return fmt.Errorf("catalog: link artifact: %w", err)
	}
	return nil
}

func (p *PGIndex) Links(ctx context.Context, id domain.ArtifactID) (map[domain.Stage]string, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return nil, domain.NotFoundf("artifact %s", id)
	}
	rows, err := p.db.Query(ctx, sqlinline.QSelectArtifactLinks, string(id))
	if err != nil {
		return nil, fmt.Errorf("catalog: select links: %w", err)
	}
	defer rows.Close()

	out := map[domain.Stage]string{}
	for rows.Next() {
		var stage, filename string
		if err := rows.Scan(&stage, &filename); err != nil {
			return nil, fmt.Errorf("catalog: scan link: %w", err)
		}
		out[domain.Stage(stage)] = filename
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate links: %w", err)
	}
	if len(out) == 0 {
		return nil, domain.NotFoundf("artifact %s", id)
	}
	return out, nil
}

func (p *PGIndex) Lookup(ctx context.Context, stage domain.Stage, filename string) (domain.ArtifactID, error) {
	var id string
	err := p.db.QueryRow(ctx, sqlinline.QSelectArtifactByFilename, string(stage), filename).Scan(&id)
	if err != nil {
		if infra.IsNoRows(err) {
			return "", domain.NotFoundf("no artifact for %s/%s", stage, filename)
		}
		return "", fmt.Errorf("catalog: lookup artifact: %w", err)
	}
	return domain.ArtifactID(id), nil
}

func (p *PGIndex) Unlink(ctx context.Context, stage domain.Stage, filename string) error {
	if _, err := p.db.Exec(ctx, sqlinline.QDeleteArtifactLink, string(stage), filename); err != nil {
		return fmt.Errorf("catalog: unlink artifact: %w", err)
	}
	return nil
}

var (
	_ Index = (*JSONIndex)(nil)
	_ Index = (*PGIndex)(nil)
)
