package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports external service reachability, engine queue depth and the
// item count of every stage.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	st, err := a.Service.Status(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, st)
}
