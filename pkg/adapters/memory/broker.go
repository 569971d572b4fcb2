package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/exposer/internal/logging"
	"github.com/aretw0/exposer/pkg/domain"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 16

// Broker fans changes out to in-process subscribers.
// Safe for concurrent use. Slow subscribers lose changes instead of
// blocking the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Change]struct{} // model -> set of channels
	buffer      int
	logger      *slog.Logger
}

// Option configures the Broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscriber buffer.
func WithBufferSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger configures a logger for dropped changes.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// NewBroker creates an empty broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribers: make(map[string]map[chan domain.Change]struct{}),
		buffer:      DefaultBufferSize,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber for model. The subscription also ends
// when ctx is done.
func (b *Broker) Subscribe(ctx context.Context, model string) (<-chan domain.Change, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Change, b.buffer)
	if _, ok := b.subscribers[model]; !ok {
		b.subscribers[model] = make(map[chan domain.Change]struct{})
	}
	b.subscribers[model][ch] = struct{}{}

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subscribers[model]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(b.subscribers, model)
				}
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel, nil
}

// Publish delivers change to the subscribers of change.Model.
func (b *Broker) Publish(ctx context.Context, change domain.Change) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[change.Model] {
		select {
		case ch <- change:
		default:
			// Drop change if channel is full (slow subscriber)
			b.logger.Warn("subscriber buffer full, dropping change", "model", change.Model, "path", change.Path)
		}
	}
	return nil
}

// Subscribers returns the number of active subscribers for model.
func (b *Broker) Subscribers(model string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[model])
}
