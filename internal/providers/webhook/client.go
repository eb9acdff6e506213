// Package webhook notifies the workflow-automation service about uploads.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options configures the webhook client.
type Options struct {
	BaseURL        string
	HealthPath     string
	UploadPath     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

type Client struct {
	baseURL    string
	healthPath string
	uploadPath string
	httpClient *http.Client
	logger     *infra.Logger
}

// UploadedFile is one entry of the upload envelope.
type UploadedFile struct {
	OriginalName string    `json:"originalName"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	MIMEType     string    `json:"mimetype"`
	Path         string    `json:"path"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// UploadMetadata describes the request that carried the upload.
type UploadMetadata struct {
	UploadTime time.Time `json:"uploadTime"`
	UserAgent  string    `json:"userAgent"`
	IP         string    `json:"ip"`
}

// UploadEnvelope is the JSON body posted to the upload path.
type UploadEnvelope struct {
	UploadID   string         `json:"uploadId"`
	TotalFiles int            `json:"totalFiles"`
	Files      []UploadedFile `json:"files"`
	Metadata   UploadMetadata `json:"metadata"`
}

func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:5678"
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		healthPath: pathOr(opts.HealthPath, "/healthz"),
		uploadPath: pathOr(opts.UploadPath, "/webhook/upload"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Health returns nil when the health path answers 2xx.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return fmt.Errorf("webhook: build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: webhook: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook: health status %d", domain.ErrDependencyUnavailable, resp.StatusCode)
	}
	return nil
}

// NotifyUpload posts env to the upload path.
func (c *Client) NotifyUpload(ctx context.Context, env UploadEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("webhook: encode envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.uploadPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: webhook: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook: status %d: %s", domain.ErrDependency, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	c.logger.Debug().Str("upload_id", env.UploadID).Int("files", env.TotalFiles).Msg("webhook: upload notified")
	return nil
}

func pathOr(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
