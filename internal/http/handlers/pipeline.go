package handlers

import (
	"net/http"
	"strings"

	"studio/internal/domain"
)

type batchRequest struct {
	Filenames []string `json:"filenames"`
}

type validateRequest struct {
	Filename string `json:"filename"`
}

// Normalize runs the gate and normalizer over the named uploads, or over
// every upload when the list is empty.
func (a *App) Normalize(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Service.NormalizeBatch(r.Context(), req.Filenames)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		a.fail(w, r, domain.Validationf("filename required"))
		return
	}
	rep, err := a.Service.Validate(r.Context(), req.Filename)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rep)
}

func (a *App) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Service.RemoveBackgroundBatch(r.Context(), req.Filenames)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
