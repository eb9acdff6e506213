package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studio/internal/domain"
)

func (a *App) ListCatalog(w http.ResponseWriter, r *http.Request) {
	stage, err := domain.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.Service.ListCatalog(r.Context(), stage)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"stage": stage,
		"count": len(items),
		"items": items,
	})
}

// CatalogArchive streams a zip of one stage. Headers are committed before
// the first entry, so a mid-stream failure can only be logged.
func (a *App) CatalogArchive(w http.ResponseWriter, r *http.Request) {
	stage, err := domain.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("%s-%s.zip", stage, time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	n, err := a.Service.Archive(r.Context(), stage, w)
	if err != nil {
		a.Logger.Error().Err(err).Str("stage", string(stage)).Int("files", n).Msg("archive failed")
	}
}

func (a *App) Artifact(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	if _, err := uuid.Parse(raw); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid artifact id")
		return
	}
	id := domain.ArtifactID(raw)
	links, err := a.Service.ArtifactLinks(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "stages": links})
}

func (a *App) Checkpoints(w http.ResponseWriter, r *http.Request) {
	names, err := a.Service.Checkpoints(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"checkpoints": names})
}
