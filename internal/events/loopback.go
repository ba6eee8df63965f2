package events

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
)

var ErrLoopbackClosed = errors.New("loopback closed")

// Loopback is an in-process queue used in place of Kafka when no brokers
// are configured. It implements both MessageWriter and MessageReader.
type Loopback struct {
	queue     chan kafka.Message
	done      chan struct{}
	closeOnce sync.Once
}

func NewLoopback(size int) *Loopback {
	if size <= 0 {
		size = defaultBatchSize
	}
	return &Loopback{
		queue: make(chan kafka.Message, size),
		done:  make(chan struct{}),
	}
}

func (l *Loopback) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		select {
		case l.queue <- msg:
		case <-l.done:
			return ErrLoopbackClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (l *Loopback) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-l.queue:
		return msg, nil
	case <-l.done:
		return kafka.Message{}, ErrLoopbackClosed
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

// CommitMessages is a no-op: a fetched message is already gone from the queue.
func (l *Loopback) CommitMessages(context.Context, ...kafka.Message) error {
	return nil
}

func (l *Loopback) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}
