package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/events"
	"studio/internal/providers/webhook"
)

// IncomingFile is one file of an upload request.
type IncomingFile struct {
	OriginalName string
	MIMEType     string
	Body         io.Reader
}

// UploadMeta describes the caller of an upload.
type UploadMeta struct {
	UserAgent string
	IP        string
}

// StoredFile is an accepted upload.
type StoredFile struct {
	OriginalName string `json:"original_name"`
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	MIMEType     string `json:"mimetype"`
	Path         string `json:"path"`
}

// UploadResult answers an upload call.
type UploadResult struct {
	UploadID string       `json:"upload_id"`
	Files    []StoredFile `json:"files"`
	Warnings []string     `json:"warnings,omitempty"`
}

var uploadExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".tif": true, ".tiff": true, ".gif": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Upload stores files in the uploads stage under unique names and notifies
// the webhook. A batch is stored whole or not at all. Notification failure
// does not fail the upload.
func (s *Service) Upload(ctx context.Context, files []IncomingFile, meta UploadMeta) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, domain.Validationf("no files uploaded")
	}
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.OriginalName))
		if !uploadExtensions[ext] {
			return nil, domain.Validationf("%s: only image files are allowed", f.OriginalName)
		}
	}

	uploadID := uuid.NewString()
	now := s.now().UTC()
	res := &UploadResult{UploadID: uploadID, Files: make([]StoredFile, 0, len(files))}
	env := webhook.UploadEnvelope{
		UploadID: uploadID,
		Metadata: webhook.UploadMetadata{UploadTime: now, UserAgent: meta.UserAgent, IP: meta.IP},
	}

	for _, f := range files {
		name := uniqueName(f.OriginalName)
		art, err := s.cat.PutFrom(ctx, domain.StageUploaded, name, f.Body)
		if err != nil {
			s.discardUploads(res.Files)
			return nil, fmt.Errorf("pipeline: store %s: %w", f.OriginalName, err)
		}
		stored := StoredFile{
			OriginalName: f.OriginalName,
			Filename:     name,
			Size:         art.Size,
			MIMEType:     f.MIMEType,
			Path:         string(domain.StageUploaded) + "/" + name,
		}
		if stored.MIMEType == "" {
			stored.MIMEType = contentType(name)
		}
		res.Files = append(res.Files, stored)
	}

	for _, stored := range res.Files {
		env.Files = append(env.Files, webhook.UploadedFile{
			OriginalName: stored.OriginalName,
			Filename:     stored.Filename,
			Size:         stored.Size,
			MIMEType:     stored.MIMEType,
			Path:         stored.Path,
			UploadedAt:   now,
		})
		ev := events.Event{Type: events.TypeUploaded, Filename: stored.Filename, Stage: domain.StageUploaded, BatchID: uploadID, At: now}
		if err := s.events.Publish(ctx, ev); err != nil {
			res.Warnings = append(res.Warnings, "event publish failed: "+err.Error())
		}
	}
	env.TotalFiles = len(env.Files)

	if err := s.notifier.NotifyUpload(ctx, env); err != nil {
		s.logger.Warn().Err(err).Str("upload_id", uploadID).Msg("pipeline: webhook notify failed")
		res.Warnings = append(res.Warnings, "webhook notify failed: "+err.Error())
	}
	s.logger.Info().Str("upload_id", uploadID).Int("files", len(res.Files)).Msg("pipeline: upload stored")
	return res, nil
}

// discardUploads removes files stored earlier in a failed batch. It ignores
// request cancellation.
func (s *Service) discardUploads(files []StoredFile) {
	for _, f := range files {
		if err := s.cat.Delete(context.Background(), domain.StageUploaded, f.Filename); err != nil {
			s.logger.Warn().Err(err).Str("filename", f.Filename).Msg("pipeline: discard partial upload failed")
		}
	}
}

func uniqueName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := strings.TrimSuffix(filepath.Base(strings.ReplaceAll(original, `\`, "/")), filepath.Ext(original))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-")
	if base == "" {
		base = "image"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], ext)
}
