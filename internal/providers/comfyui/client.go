// Package comfyui drives a ComfyUI server: submit a workflow, poll its
// history until outputs appear, then fetch the rendered images.
package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options configures the engine client.
type Options struct {
	BaseURL        string
	ClientID       string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	PollInterval   time.Duration
	MaxWait        time.Duration
	Now            func() time.Time
	Sleep          func(ctx context.Context, d time.Duration) error
}

type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *infra.Logger
	poller     Poller
	maxWait    time.Duration
}

// OutputImage identifies a file the engine wrote.
type OutputImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// HistoryEntry is one prompt's record from GET /history/{id}.
type HistoryEntry struct {
	Outputs map[string]struct {
		Images []OutputImage `json:"images"`
	} `json:"outputs"`
	Status struct {
		StatusStr string            `json:"status_str"`
		Completed bool              `json:"completed"`
		Messages  []json.RawMessage `json:"messages"`
	} `json:"status"`
}

// Images lists output images, save node first, then by node id.
func (h *HistoryEntry) Images() []OutputImage {
	if h == nil {
		return nil
	}
	ids := make([]string, 0, len(h.Outputs))
	for id := range h.Outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if (ids[i] == NodeSave) != (ids[j] == NodeSave) {
			return ids[i] == NodeSave
		}
		return ids[i] < ids[j]
	})
	var out []OutputImage
	for _, id := range ids {
		out = append(out, h.Outputs[id].Images...)
	}
	return out
}

// Failed reports whether the engine marked the prompt as errored.
func (h *HistoryEntry) Failed() bool {
	return h != nil && h.Status.StatusStr == "error"
}

// QueueStatus summarizes GET /queue.
type QueueStatus struct {
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// Depth is running plus pending.
func (q QueueStatus) Depth() int { return q.Running + q.Pending }

type promptRequest struct {
	Prompt   Workflow `json:"prompt"`
	ClientID string   `json:"client_id,omitempty"`
}

type promptResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors"`
}

func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8188"
	}
	clientID := strings.TrimSpace(opts.ClientID)
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		httpClient: httpClient,
		logger:     logger,
		poller:     Poller{Interval: opts.PollInterval, Now: opts.Now, Sleep: opts.Sleep},
		maxWait:    maxWait,
	}, nil
}

func (c *Client) BaseURL() string        { return c.baseURL }
func (c *Client) MaxWait() time.Duration { return c.maxWait }

// Health uses GET /system_stats as the liveness probe.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.SystemStats(ctx); err != nil {
		return fmt.Errorf("%w: comfyui: %v", domain.ErrDependencyUnavailable, err)
	}
	return nil
}

// QueuePrompt submits wf and returns the engine's prompt id. Submissions
// are never retried.
func (c *Client) QueuePrompt(ctx context.Context, wf Workflow) (string, error) {
	body, err := json.Marshal(promptRequest{Prompt: wf, ClientID: c.clientID})
	if err != nil {
		return "", fmt.Errorf("comfyui: encode prompt: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, "/prompt", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	var decoded promptResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: comfyui: decode prompt response: %v", domain.ErrDependency, err)
	}
	if decoded.PromptID == "" {
		return "", fmt.Errorf("%w: comfyui: empty prompt id: %s", domain.ErrDependency, strings.TrimSpace(string(raw)))
	}
	c.logger.Debug().Str("prompt_id", decoded.PromptID).Int("number", decoded.Number).Msg("comfyui: prompt queued")
	return decoded.PromptID, nil
}

// History returns the entry for promptID, or nil while the engine has not
// recorded it yet.
func (c *Client) History(ctx context.Context, promptID string) (*HistoryEntry, error) {
	raw, err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(promptID), "", nil)
	if err != nil {
		return nil, err
	}
	var decoded map[string]*HistoryEntry
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: comfyui: decode history: %v", domain.ErrDependency, err)
	}
	return decoded[promptID], nil
}

// WaitForCompletion polls History until the prompt has output images, fails,
// completes empty, or maxWait elapses. maxWait <= 0 uses the client's budget. Transport
// errors while polling are logged and polled again.
func (c *Client) WaitForCompletion(ctx context.Context, promptID string, maxWait time.Duration) (*HistoryEntry, error) {
	if maxWait <= 0 {
		maxWait = c.maxWait
	}
	var result *HistoryEntry
	err := c.poller.Poll(ctx, maxWait, func(ctx context.Context) (bool, error) {
		entry, err := c.History(ctx, promptID)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("prompt_id", promptID).Msg("comfyui: history poll failed")
			return false, nil
		}
		if entry == nil {
			return false, nil
		}
		if entry.Failed() {
			return false, fmt.Errorf("%w: comfyui: prompt %s failed: %s", domain.ErrDependency, promptID, failureMessage(entry))
		}
		if len(entry.Images()) > 0 {
			result = entry
			return true, nil
		}
		if entry.Status.Completed {
			return false, fmt.Errorf("%w: comfyui: prompt %s completed without outputs", domain.ErrDependency, promptID)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// View downloads one output image.
func (c *Client) View(ctx context.Context, img OutputImage) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", img.Filename)
	q.Set("subfolder", img.Subfolder)
	typ := img.Type
	if typ == "" {
		typ = "output"
	}
	q.Set("type", typ)
	return c.do(ctx, http.MethodGet, "/view?"+q.Encode(), "", nil)
}

// UploadImage stores a reference image on the engine and returns the name
// the engine assigned to it.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("comfyui: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("comfyui: copy image: %w", err)
	}
	_ = mw.WriteField("overwrite", "true")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("comfyui: close form: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, "/upload/image", mw.FormDataContentType(), body)
	if err != nil {
		return "", err
	}
	var decoded struct {
		Name      string `json:"name"`
		Subfolder string `json:"subfolder"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded.Name == "" {
		return "", fmt.Errorf("%w: comfyui: bad upload response: %s", domain.ErrDependency, strings.TrimSpace(string(raw)))
	}
	if decoded.Subfolder != "" {
		return decoded.Subfolder + "/" + decoded.Name, nil
	}
	return decoded.Name, nil
}

// Queue reports running and pending prompt counts.
func (c *Client) Queue(ctx context.Context) (QueueStatus, error) {
	raw, err := c.do(ctx, http.MethodGet, "/queue", "", nil)
	if err != nil {
		return QueueStatus{}, err
	}
	var decoded struct {
		Running []json.RawMessage `json:"queue_running"`
		Pending []json.RawMessage `json:"queue_pending"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return QueueStatus{}, fmt.Errorf("%w: comfyui: decode queue: %v", domain.ErrDependency, err)
	}
	return QueueStatus{Running: len(decoded.Running), Pending: len(decoded.Pending)}, nil
}

// SystemStats returns the raw device and version report.
func (c *Client) SystemStats(ctx context.Context) (map[string]any, error) {
	return c.getObject(ctx, "/system_stats")
}

// ObjectInfo returns the node definition for nodeType.
func (c *Client) ObjectInfo(ctx context.Context, nodeType string) (map[string]any, error) {
	return c.getObject(ctx, "/object_info/"+url.PathEscape(nodeType))
}

// Checkpoints lists model files the checkpoint loader accepts.
func (c *Client) Checkpoints(ctx context.Context) ([]string, error) {
	info, err := c.ObjectInfo(ctx, "CheckpointLoaderSimple")
	if err != nil {
		return nil, err
	}
	node, _ := info["CheckpointLoaderSimple"].(map[string]any)
	input, _ := node["input"].(map[string]any)
	required, _ := input["required"].(map[string]any)
	ckpt, _ := required["ckpt_name"].([]any)
	if len(ckpt) == 0 {
		return []string{}, nil
	}
	names, _ := ckpt[0].([]any)
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s, ok := n.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Client) getObject(ctx context.Context, path string) (map[string]any, error) {
	raw, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: comfyui: decode %s: %v", domain.ErrDependency, path, err)
	}
	return decoded, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("comfyui: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: comfyui: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("comfyui: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: comfyui: %s %s status %d: %s", domain.ErrDependency, method, strings.SplitN(path, "?", 2)[0],
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

func failureMessage(h *HistoryEntry) string {
	for i := len(h.Status.Messages) - 1; i >= 0; i-- {
		var msg []json.RawMessage
		if err := json.Unmarshal(h.Status.Messages[i], &msg); err != nil || len(msg) != 2 {
			continue
		}
		var kind string
		_ = json.Unmarshal(msg[0], &kind)
		if kind != "execution_error" {
			continue
		}
		var detail struct {
			NodeType         string `json:"node_type"`
			ExceptionMessage string `json:"exception_message"`
		}
		if err := json.Unmarshal(msg[1], &detail); err == nil && detail.ExceptionMessage != "" {
			return strings.TrimSpace(detail.NodeType + ": " + detail.ExceptionMessage)
		}
	}
	return "execution error"
}
