package repository

import (
	"context"

	"BreakScan/internal/domain/models"
	pkgkafka "BreakScan/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// SignalEvent is the Kafka payload for one breakout or breakdown.
type SignalEvent struct {
	RunID string `json:"run_id"`
	models.SignalRecord
}

// KafkaSignalPublisher writes every signal of a run as one keyed message per symbol.
type KafkaSignalPublisher struct {
	producer batchProducer
	topic    string
}

// NewKafkaSignalPublisher creates a publisher writing to topic.
func NewKafkaSignalPublisher(producer batchProducer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

// PublishSignals sends breakouts then breakdowns. An empty run publishes nothing.
func (p *KafkaSignalPublisher) PublishSignals(ctx context.Context, runID string, sets models.SignalSets) error {
	msgs := make([]pkgkafka.Message, 0, len(sets.Breakouts)+len(sets.Breakdowns))
	for _, group := range [][]models.SignalRecord{sets.Breakouts, sets.Breakdowns} {
		for _, r := range group {
			msgs = append(msgs, pkgkafka.Message{
				Key:   []byte(r.Symbol),
				Value: SignalEvent{RunID: runID, SignalRecord: r},
				Headers: map[string]string{
					"verdict": string(r.Verdict),
					"run_id":  runID,
				},
			})
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close closes the underlying producer.
func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopSignalPublisher is used when Kafka is not configured.
type NoopSignalPublisher struct{}

func (NoopSignalPublisher) PublishSignals(context.Context, string, models.SignalSets) error { return nil }
func (NoopSignalPublisher) Close() error { return nil }
