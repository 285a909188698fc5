package eventbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/riskibarqy/predictor-league/internal/usecase"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event to "<topicPrefix>.<event type>", keyed by the
// event key so one match or wager always lands on the same partition.
type KafkaPublisher struct {
	writer      MessageWriter
	topicPrefix string
	logger      *logging.Logger
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func NewKafkaPublisher(writer MessageWriter, topicPrefix string, logger *logging.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &KafkaPublisher{
		writer:      writer,
		topicPrefix: strings.Trim(strings.TrimSpace(topicPrefix), "."),
		logger:      logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...usecase.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := sonic.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topic(event.Type),
			Key:   []byte(event.Key),
			Value: payload,
			Time:  event.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.Type)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.WarnContext(ctx, "publish events failed", "count", len(msgs), "error", err)
		return fmt.Errorf("write %d events: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) topic(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return p.topicPrefix + "." + eventType
}
