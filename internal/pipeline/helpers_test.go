package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"studio/internal/catalog"
	"studio/internal/domain"
	"studio/internal/providers/comfyui"
	"studio/internal/providers/webhook"
	"studio/internal/storage"
)

type fakeRemover struct {
	healthErr error
	fail      map[string]error
	calls     []string
}

func (f *fakeRemover) Health(context.Context) error { return f.healthErr }

func (f *fakeRemover) RemoveBackground(_ context.Context, filename string, r io.Reader) ([]byte, error) {
	f.calls = append(f.calls, filename)
	if err := f.fail[filename]; err != nil {
		return nil, err
	}
	data, _ := io.ReadAll(r)
	return append([]byte("nobg:"), data[:4]...), nil
}

type fakeEngine struct {
	mu        sync.Mutex
	healthErr error
	failOn    map[int]error
	workflows []comfyui.Workflow
	uploads   []string
	queue     comfyui.QueueStatus
	queueErr  error
}

func (f *fakeEngine) Health(context.Context) error { return f.healthErr }

func (f *fakeEngine) QueuePrompt(_ context.Context, wf comfyui.Workflow) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workflows = append(f.workflows, wf)
	n := len(f.workflows)
	if err := f.failOn[n]; err != nil {
		return "", err
	}
	return fmt.Sprintf("p-%d", n), nil
}

func (f *fakeEngine) WaitForCompletion(_ context.Context, id string, _ time.Duration) (*comfyui.HistoryEntry, error) {
	var entry comfyui.HistoryEntry
	raw := fmt.Sprintf(`{"outputs":{"9":{"images":[{"filename":"%s_00001_.png","subfolder":"","type":"output"}]}},
		"status":{"status_str":"success","completed":true}}`, id)
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (f *fakeEngine) View(_ context.Context, img comfyui.OutputImage) ([]byte, error) {
	return []byte("render:" + img.Filename), nil
}

func (f *fakeEngine) UploadImage(_ context.Context, filename string, _ io.Reader) (string, error) {
	f.uploads = append(f.uploads, filename)
	return "ref_" + filename, nil
}

func (f *fakeEngine) Queue(context.Context) (comfyui.QueueStatus, error) { return f.queue, f.queueErr }

func (f *fakeEngine) Checkpoints(context.Context) ([]string, error) {
	return []string{"v1-5-pruned-emaonly.safetensors"}, nil
}

func (f *fakeEngine) seeds() []int64 {
	out := make([]int64, 0, len(f.workflows))
	for _, wf := range f.workflows {
		out = append(out, wf[comfyui.NodeSampler].Inputs["seed"].(int64))
	}
	return out
}

type fakeNotifier struct {
	healthErr error
	notifyErr error
	envelopes []webhook.UploadEnvelope
}

func (f *fakeNotifier) Health(context.Context) error { return f.healthErr }

func (f *fakeNotifier) NotifyUpload(_ context.Context, env webhook.UploadEnvelope) error {
	f.envelopes = append(f.envelopes, env)
	return f.notifyErr
}

type fixture struct {
	svc      *Service
	cat      *catalog.FileCatalog
	index    *catalog.JSONIndex
	remover  *fakeRemover
	engine   *fakeEngine
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cat, err := catalog.NewFileCatalog(store)
	if err != nil {
		t.Fatalf("NewFileCatalog: %v", err)
	}
	idx, err := catalog.NewJSONIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("NewJSONIndex: %v", err)
	}
	f := &fixture{
		cat:      cat,
		index:    idx,
		remover:  &fakeRemover{},
		engine:   &fakeEngine{},
		notifier: &fakeNotifier{},
	}
	f.svc = New(Options{
		Catalog:  cat,
		Index:    idx,
		Remover:  f.remover,
		Engine:   f.engine,
		Notifier: f.notifier,
		Rand:     rand.New(rand.NewPCG(7, 11)),
	})
	return f
}

func (f *fixture) putImage(t *testing.T, stage domain.Stage, name string, w, h int, asPNG bool) []byte {
	t.Helper()
	var seed int
	for _, c := range name {
		seed += int(c) * 7
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x*200/w + seed%50)
			img.Pix[i+1] = uint8(y * 255 / h)
			img.Pix[i+2] = uint8(seed)
			img.Pix[i+3] = 255
		}
	}
	var buf bytes.Buffer
	var err error
	if asPNG {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.putBytes(t, stage, name, buf.Bytes())
	return buf.Bytes()
}

func (f *fixture) putBytes(t *testing.T, stage domain.Stage, name string, data []byte) {
	t.Helper()
	if _, err := f.cat.Put(context.Background(), stage, name, data); err != nil {
		t.Fatalf("Put %s: %v", name, err)
	}
}

func (f *fixture) exists(stage domain.Stage, name string) bool {
	_, err := f.cat.Stat(context.Background(), stage, name)
	return err == nil
}

var errBoom = errors.New("boom")
