package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/pipeline"
)

// maxJSONBody bounds pipeline and generation request bodies.
const maxJSONBody = 1 << 20

type App struct {
	Config  *infra.Config
	Logger  *infra.Logger
	Service *pipeline.Service
}

func NewApp(cfg *infra.Config, logger *infra.Logger, svc *pipeline.Service) *App {
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &App{Config: cfg, Logger: logger, Service: svc}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorBody{Error: errorDetail{Code: kind, Message: message}})
}

// fail answers a request-level error with the status its kind maps to.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.Kind(err)
	code := statusFor(kind)
	ev := a.Logger.Warn()
	if code >= http.StatusInternalServerError {
		ev = a.Logger.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Str("kind", kind).Msg("request failed")
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	a.error(w, code, kind, msg)
}

func statusFor(kind string) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindDuplicate:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (a *App) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.Validationf("invalid payload: %v", err)
	}
	return nil
}
