// Package events publishes pipeline milestones to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"studio/internal/domain"
)

// Event types.
const (
	TypeUploaded   = "artifact.uploaded"
	TypeNormalized = "artifact.normalized"
	TypeNoBg       = "artifact.background_removed"
	TypeGenerated  = "artifact.generated"
)

// Event is the JSON value of every message.
type Event struct {
	Type       string            `json:"type"`
	ArtifactID domain.ArtifactID `json:"artifact_id,omitempty"`
	Filename   string            `json:"filename"`
	Stage      domain.Stage      `json:"stage"`
	BatchID    string            `json:"batch_id,omitempty"`
	At         time.Time         `json:"at"`
}

// Publisher emits events. Callers treat failures as warnings.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by artifact id so the
// events of one artifact land on one partition.
type KafkaPublisher struct {
	w    MessageWriter
	once sync.Once
}

// NewKafkaPublisher builds a writer for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("events: topic is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode: %w", err)
	}
	key := string(ev.ArtifactID)
	if key == "" {
		key = ev.Filename
	}
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
		Time:    ev.At,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	var err error
	p.once.Do(func() { err = p.w.Close() })
	return err
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*KafkaPublisher)(nil)
)
