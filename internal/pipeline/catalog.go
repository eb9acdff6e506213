package pipeline

import (
	"context"
	"io"
	"time"

	"studio/internal/domain"
	"studio/pkg/zip"
)

// ListCatalog returns the artifacts of one stage, newest first.
func (s *Service) ListCatalog(ctx context.Context, stage domain.Stage) ([]domain.Artifact, error) {
	return s.cat.List(ctx, stage)
}

// Archive writes a zip of every artifact in stage to w.
func (s *Service) Archive(ctx context.Context, stage domain.Stage, w io.Writer) (int, error) {
	items, err := s.cat.List(ctx, stage)
	if err != nil {
		return 0, err
	}
	entries := make([]zip.Entry, 0, len(items))
	for _, a := range items {
		p, err := s.cat.Path(stage, a.Filename)
		if err != nil {
			return 0, err
		}
		entries = append(entries, zip.Entry{Name: a.Filename, Path: p, Modified: a.ModTime})
	}
	skipped, err := zip.WriteArchive(w, entries)
	if len(skipped) > 0 {
		s.logger.Warn().Strs("skipped", skipped).Str("stage", string(stage)).Msg("pipeline: files vanished while archiving")
	}
	return len(entries) - len(skipped), err
}

// ArtifactLinks returns the filename an artifact has at each stage.
func (s *Service) ArtifactLinks(ctx context.Context, id domain.ArtifactID) (map[domain.Stage]string, error) {
	return s.index.Links(ctx, id)
}

// ServiceStatus is the reachability of one external service.
type ServiceStatus struct {
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// EngineStatus adds queue depth to ServiceStatus.
type EngineStatus struct {
	ServiceStatus
	QueueRunning int `json:"queue_running"`
	QueuePending int `json:"queue_pending"`
}

// Status is the aggregate answer of GET /status.
type Status struct {
	Services struct {
		Webhook ServiceStatus `json:"webhook"`
		Rembg   ServiceStatus `json:"rembg"`
		ComfyUI EngineStatus  `json:"comfyui"`
	} `json:"services"`
	Stages    map[domain.Stage]int `json:"stages"`
	CheckedAt time.Time            `json:"checked_at"`
}

// Status probes every external service and counts each stage. Probe
// failures are reported in the result, never returned.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{Stages: map[domain.Stage]int{}, CheckedAt: s.now().UTC()}
	st.Services.Webhook = probe(s.notifier.Health(ctx))
	st.Services.Rembg = probe(s.remover.Health(ctx))

	q, err := s.engine.Queue(ctx)
	st.Services.ComfyUI.ServiceStatus = probe(err)
	if err == nil {
		st.Services.ComfyUI.QueueRunning = q.Running
		st.Services.ComfyUI.QueuePending = q.Pending
	}

	for _, stage := range domain.Stages {
		n, err := s.cat.Count(ctx, stage)
		if err != nil {
			return nil, err
		}
		st.Stages[stage] = n
	}
	return st, nil
}

// Checkpoints lists the model files the engine can load.
func (s *Service) Checkpoints(ctx context.Context) ([]string, error) {
	return s.engine.Checkpoints(ctx)
}

func probe(err error) ServiceStatus {
	if err != nil {
		return ServiceStatus{Error: err.Error()}
	}
	return ServiceStatus{Reachable: true}
}
