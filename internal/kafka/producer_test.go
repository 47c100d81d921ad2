package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
	err      error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestProducer(w messageWriter, buf int) *Producer {
	return &Producer{
		w:      w,
		inbox:  make(chan kafka.Message, buf),
		closed: make(chan struct{}),
		log:    zap.NewNop(),
	}
}

func TestProducerDrainsBufferOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 16)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	for i := 0; i < 5; i++ {
		p.Publish([]byte("order-1"), []byte(`{"event_type":"order.settled"}`))
	}
	cancel()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.messages) != 5 {
		t.Errorf("expected all 5 buffered messages drained, got %d", len(w.messages))
	}
	if !w.closed {
		t.Error("writer must be closed after the drain")
	}
}

func TestProducerDropsWhenBufferFull(t *testing.T) {
	p := newTestProducer(&fakeWriter{}, 2)
	// Not started: the inbox fills up and further publishes must not block.
	for i := 0; i < 10; i++ {
		p.Publish([]byte("k"), []byte("v"))
	}
	if got := len(p.inbox); got != 2 {
		t.Errorf("expected buffer capped at 2, got %d", got)
	}
}

func TestProducerWriteErrorsDoNotStopDrain(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unreachable")}
	p := newTestProducer(w, 8)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Publish([]byte("a"), []byte("1"))
	p.Publish([]byte("b"), []byte("2"))
	cancel()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.messages) != 2 {
		t.Errorf("failed writes are logged, not retried; expected 2 attempts, got %d", len(w.messages))
	}
}
