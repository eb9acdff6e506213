package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"studio/internal/domain"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed++
	return nil
}

func TestKafkaPublisherMessage(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisherWithWriter(w)
	err := p.Publish(context.Background(), Event{
		Type:       TypeNormalized,
		ArtifactID: "a-1",
		Filename:   "shirt_processed.jpg",
		Stage:      domain.StageResized,
		BatchID:    "b-1",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "a-1" || string(msg.Headers[0].Value) != TypeNormalized {
		t.Fatalf("unexpected key/header: %s %v", msg.Key, msg.Headers)
	}
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Stage != domain.StageResized || ev.At.IsZero() {
		t.Fatalf("unexpected event: %+v", ev)
	}

	_ = p.Close()
	_ = p.Close()
	if w.closed != 1 {
		t.Fatalf("writer closed %d times", w.closed)
	}
}

func TestKafkaPublisherError(t *testing.T) {
	p := NewPublisherWithWriter(&recordingWriter{err: errors.New("broker down")})
	if err := p.Publish(context.Background(), Event{Type: TypeGenerated, Filename: "x.png"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "topic"); err == nil {
		t.Fatalf("expected broker error")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected topic error")
	}
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "studio.pipeline")
	if err != nil {
		t.Fatalf("NewKafkaPublisher: %v", err)
	}
	_ = p.Close()
}
