// Package kafka wraps the async settlement-event producer. Publishing is
// fire-and-forget: the settlement path never blocks on the broker.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the slice of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages in-process and writes them asynchronously.
type Producer struct {
	w      messageWriter
	inbox  chan kafka.Message
	closed chan struct{}
	log    *zap.Logger
}

// NewProducer creates a producer for one topic.
func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:  make(chan kafka.Message, buf),
		closed: make(chan struct{}),
		log:    log,
	}
}

// Start consumes the inbox until ctx is cancelled, then drains what remains.
// The inbox is never closed, so a late Publish can never panic; messages
// enqueued after the drain are dropped with the buffer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closed)
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						_ = p.w.Close()
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// Publish enqueues a message without blocking the caller beyond the buffer.
// A full buffer drops the message; settlement events are best-effort.
func (p *Producer) Publish(key, value []byte) {
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now()}:
	default:
		p.log.Warn("event buffer full, dropping message", zap.ByteString("key", key))
	}
}

// WaitClosed blocks until the producer goroutine has drained and exited.
func (p *Producer) WaitClosed() { <-p.closed }

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Warn("event publish failed", zap.Error(err))
	}
}
