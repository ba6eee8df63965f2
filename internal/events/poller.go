// Package events publishes order outbox rows and reacts to them.
package events

import (
	"context"
	"time"

	"github.com/fjod/natal_store/internal/config"
	"github.com/fjod/natal_store/internal/logger"
	"github.com/fjod/natal_store/internal/orders"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType = "event_type"

	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// OutboxSource is the part of the order repository the poller reads.
type OutboxSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*orders.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// MessageWriter is satisfied by *kafka.Writer and by Loopback.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OutboxPoller struct {
	source    OutboxSource
	writer    MessageWriter
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

func NewOutboxPoller(source OutboxSource, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		source:    source,
		writer:    writer,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		log:       logger.Component("outbox_poller"),
	}
}

// NewKafkaWriter builds the producer for the order topic.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info().Dur("interval", p.interval).Msg("outbox poller started")
	for {
		select {
		case <-ticker.C:
			p.ProcessOnce(ctx)
		case <-ctx.Done():
			p.log.Info().Msg("outbox poller stopped")
			return
		}
	}
}

// ProcessOnce publishes one batch and returns how many events were marked
// as processed. An event that fails to publish stays in the outbox and is
// retried on the next tick.
func (p *OutboxPoller) ProcessOnce(ctx context.Context) int {
	events, err := p.source.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch outbox events")
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to publish event")
			// keep per-order ordering: later events of the batch wait
			return published
		}
		if err := p.source.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to mark event as processed")
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *orders.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
