package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/natal_store/internal/config"
	"github.com/fjod/natal_store/internal/logger"
	"github.com/fjod/natal_store/internal/notify"
	"github.com/fjod/natal_store/internal/orders"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageReader is satisfied by *kafka.Reader and by Loopback.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderConsumer emails customers about their orders.
type OrderConsumer struct {
	reader MessageReader
	mailer notify.Mailer
	log    zerolog.Logger
}

func NewOrderConsumer(reader MessageReader, mailer notify.Mailer) *OrderConsumer {
	return &OrderConsumer{reader: reader, mailer: mailer, log: logger.Component("order_consumer")}
}

func NewKafkaReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
}

func (c *OrderConsumer) Run(ctx context.Context) {
	ctx = c.log.WithContext(ctx)
	c.log.Info().Msg("order consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrLoopbackClosed) || errors.Is(err, context.Canceled) {
				c.log.Info().Msg("order consumer stopped")
				return
			}
			c.log.Error().Err(err).Msg("error reading message")
			continue
		}

		if err := c.Handle(ctx, msg); err != nil {
			c.log.Error().Err(err).Str("key", string(msg.Key)).Msg("failed to handle order event")
		}
		// a failed email is not retried; the order itself is already stored
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error().Err(err).Msg("failed to commit message")
		}
	}
}

func (c *OrderConsumer) Close() error {
	return c.reader.Close()
}

// Handle sends the email for one event. Unknown event types are ignored.
func (c *OrderConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	var event orders.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("parse order event: %w", err)
	}
	eventType := headerValue(msg, HeaderEventType)
	if eventType == "" {
		eventType = event.Type
	}
	if event.Order == nil {
		return fmt.Errorf("order event %s for %s has no order", eventType, event.OrderID)
	}

	var mail notify.Message
	switch eventType {
	case orders.EventOrderPlaced:
		m, err := notify.OrderConfirmationEmail(event.Order)
		if err != nil {
			return err
		}
		mail = m
	case orders.EventOrderStatusChanged:
		mail = notify.OrderStatusEmail(event.Order)
	default:
		c.log.Debug().Str("event_type", eventType).Msg("ignoring event")
		return nil
	}

	if err := c.mailer.Send(ctx, mail); err != nil {
		return err
	}
	c.log.Info().Str("event_type", eventType).Str("order_id", event.OrderID).Msg("order email sent")
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
