package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/medcv-review/pkg/logger"
	"github.com/google/uuid"
)

// LocalBus delivers events in-process. Handlers run synchronously inside
// Publish, in subscription order. Each queue group gets one delivery per
// event, to its first member.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string][]func(*Message)
	queues map[string]map[string]func(*Message)
	closed bool
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		subs:   map[string][]func(*Message){},
		queues: map[string]map[string]func(*Message){},
	}
}

func (b *LocalBus) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus closed")
	}
	handlers := append([]func(*Message){}, b.subs[subject]...)
	for _, h := range b.queues[subject] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	logger.DebugContext(ctx, "Publishing local event", "subject", subject, "handlers", len(handlers))

	for _, h := range handlers {
		h(&Message{Subject: subject, Data: payload, Timestamp: time.Now(), ID: uuid.NewString()})
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[subject] = append(b.subs[subject], handler)
	return nil
}

func (b *LocalBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	groups := b.queues[subject]
	if groups == nil {
		groups = map[string]func(*Message){}
		b.queues[subject] = groups
	}
	if _, ok := groups[queue]; !ok {
		groups[queue] = handler
	}
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

var (
	_ EventBus = (*LocalBus)(nil)
	_ EventBus = (*NATSEventBus)(nil)
)
