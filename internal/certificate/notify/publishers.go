package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes events as JSON records keyed by student id, so a
// student's notifications stay ordered within a partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.StudentID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", ev.Kind, err)
	}
	return nil
}

// LogPublisher records events in the service log. It is the fallback when no
// broker is configured or the broker is unavailable.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "certificate notification",
		"kind", ev.Kind,
		"student_id", ev.StudentID.String(),
		"course_name", ev.CourseName,
		"certificate_id", ev.CertificateID.String(),
		"display_id", ev.DisplayID,
	)
	return nil
}
