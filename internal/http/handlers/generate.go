package handlers

import (
	"net/http"

	"studio/internal/domain/jsoncfg"
)

func (a *App) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req jsoncfg.TextRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Service.GenerateText(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) GenerateVariations(w http.ResponseWriter, r *http.Request) {
	var req jsoncfg.VariationRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Service.GenerateVariations(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
