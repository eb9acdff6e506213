// Package catalog is the record of images at each pipeline stage. Files live
// in one directory per stage; an Index links derived files to the artifact id
// of their base image.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"studio/internal/domain"
	"studio/internal/storage"
)

// Catalog lists and moves artifacts between pipeline stages.
type Catalog interface {
	List(ctx context.Context, stage domain.Stage) ([]domain.Artifact, error)
	Stat(ctx context.Context, stage domain.Stage, name string) (domain.Artifact, error)
	Path(stage domain.Stage, name string) (string, error)
	Read(ctx context.Context, stage domain.Stage, name string) ([]byte, error)
	Put(ctx context.Context, stage domain.Stage, name string, data []byte) (domain.Artifact, error)
	PutFrom(ctx context.Context, stage domain.Stage, name string, r io.Reader) (domain.Artifact, error)
	Copy(ctx context.Context, from, to domain.Stage, name string) (domain.Artifact, error)
	Delete(ctx context.Context, stage domain.Stage, name string) error
	Count(ctx context.Context, stage domain.Stage) (int, error)
}

// FileCatalog keeps each stage as a directory below one storage root.
type FileCatalog struct {
	store *storage.FileStore
}

// NewFileCatalog creates the stage directories below root.
func NewFileCatalog(store *storage.FileStore) (*FileCatalog, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	for _, stage := range domain.Stages {
		if err := store.EnsureDir(string(stage)); err != nil {
			return nil, err
		}
	}
	return &FileCatalog{store: store}, nil
}

// Root returns the storage root directory.
func (c *FileCatalog) Root() string { return c.store.BasePath() }

func (c *FileCatalog) List(ctx context.Context, stage domain.Stage) ([]domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkStage(stage); err != nil {
		return nil, err
	}
	infos, err := c.store.ListFiles(string(stage))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Artifact, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(info.Name(), domain.MetaSuffix) {
			continue
		}
		out = append(out, toArtifact(stage, info))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Filename < out[j].Filename
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

func (c *FileCatalog) Stat(ctx context.Context, stage domain.Stage, name string) (domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return domain.Artifact{}, err
	}
	key, err := stageKey(stage, name)
	if err != nil {
		return domain.Artifact{}, err
	}
	info, err := c.store.Stat(key)
	if err != nil {
		return domain.Artifact{}, mapStoreErr(err, stage, name)
	}
	return toArtifact(stage, info), nil
}

func (c *FileCatalog) Path(stage domain.Stage, name string) (string, error) {
	key, err := stageKey(stage, name)
	if err != nil {
		return "", err
	}
	return c.store.Path(key)
}

func (c *FileCatalog) Read(ctx context.Context, stage domain.Stage, name string) ([]byte, error) {
	key, err := stageKey(stage, name)
	if err != nil {
		return nil, err
	}
	data, err := c.store.Read(ctx, key)
	if err != nil {
		return nil, mapStoreErr(err, stage, name)
	}
	return data, nil
}

func (c *FileCatalog) Put(ctx context.Context, stage domain.Stage, name string, data []byte) (domain.Artifact, error) {
	key, err := stageKey(stage, name)
	if err != nil {
		return domain.Artifact{}, err
	}
	if _, err := c.store.Write(ctx, key, data); err != nil {
		return domain.Artifact{}, err
	}
	return c.Stat(ctx, stage, name)
}

func (c *FileCatalog) PutFrom(ctx context.Context, stage domain.Stage, name string, r io.Reader) (domain.Artifact, error) {
	key, err := stageKey(stage, name)
	if err != nil {
		return domain.Artifact{}, err
	}
	if _, err := c.store.WriteFrom(ctx, key, r); err != nil {
		return domain.Artifact{}, err
	}
	return c.Stat(ctx, stage, name)
}

func (c *FileCatalog) Copy(ctx context.Context, from, to domain.Stage, name string) (domain.Artifact, error) {
	data, err := c.Read(ctx, from, name)
	if err != nil {
		return domain.Artifact{}, err
	}
	return c.Put(ctx, to, name, data)
}

func (c *FileCatalog) Delete(ctx context.Context, stage domain.Stage, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := stageKey(stage, name)
	if err != nil {
		return err
	}
	if err := c.store.Remove(key); err != nil {
		return mapStoreErr(err, stage, name)
	}
	return nil
}

func (c *FileCatalog) Count(ctx context.Context, stage domain.Stage) (int, error) {
	items, err := c.List(ctx, stage)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// ValidName rejects names that are empty, hidden, or carry a directory part.
func ValidName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Validationf("filename is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return domain.Validationf("invalid filename %q", name)
	}
	return nil
}

// FormatOf guesses the content format from the extension.
func FormatOf(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "jpg", "jpeg":
		return "jpeg"
	case "tif", "tiff":
		return "tiff"
	}
	return ext
}

func checkStage(stage domain.Stage) error {
	for _, s := range domain.Stages {
		if s == stage {
			return nil
		}
	}
	return domain.Validationf("unknown stage %q", stage)
}

func stageKey(stage domain.Stage, name string) (string, error) {
	if err := checkStage(stage); err != nil {
		return "", err
	}
	if err := ValidName(name); err != nil {
		return "", err
	}
	return path.Join(string(stage), strings.TrimSpace(name)), nil
}

func toArtifact(stage domain.Stage, info fs.FileInfo) domain.Artifact {
	return domain.Artifact{
		Filename:  info.Name(),
		Stage:     stage,
		Size:      info.Size(),
		SizeHuman: domain.HumanSize(info.Size()),
		Format:    FormatOf(info.Name()),
		ModTime:   info.ModTime().UTC(),
	}
}

func mapStoreErr(err error, stage domain.Stage, name string) error {
	if errors.Is(err, storage.ErrNotExist) {
		return domain.NotFoundf("%s not found in %s", name, stage)
	}
	return fmt.Errorf("catalog: %w", err)
}

var _ Catalog = (*FileCatalog)(nil)
