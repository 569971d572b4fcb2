package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/exposer/internal/logging"
	"github.com/aretw0/exposer/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to the model name to form the channel name.
const DefaultPrefix = "exposer:changes:"

// Broker implements ports.ChangeBroker using Redis Pub/Sub. It lets several
// engine instances serving the same models share change notifications.
// Nothing is stored: changes published while no one listens are lost.
type Broker struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Broker)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(b *Broker) {
		b.prefix = prefix
	}
}

// WithPublishTimeout bounds each PUBLISH round trip.
func WithPublishTimeout(d time.Duration) Option {
	return func(b *Broker) {
		b.timeout = d
	}
}

// WithLogger configures a logger for undecodable messages.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// New creates a new Redis broker with options.
func New(address, password string, db int, opts ...Option) *Broker {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis broker from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Broker {
	b := &Broker{
		client:  client,
		prefix:  DefaultPrefix,
		timeout: 2 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) channel(model string) string {
	return b.prefix + model
}

// Ping checks connectivity.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish sends change as JSON on the model's channel.
func (b *Broker) Publish(ctx context.Context, change domain.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if err := b.client.Publish(ctx, b.channel(change.Model), data).Err(); err != nil {
		return fmt.Errorf("redis error publishing change: %w", err)
	}
	return nil
}

// Subscribe listens on the model's channel. It returns once the
// subscription is confirmed by the server.
func (b *Broker) Subscribe(ctx context.Context, model string) (<-chan domain.Change, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel(model))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis error subscribing: %w", err)
	}

	out := make(chan domain.Change, 16)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change domain.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					b.logger.Warn("discarding undecodable change", "channel", msg.Channel, "err", err)
					continue
				}
				select {
				case out <- change:
				case <-done:
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// Close closes the underlying client.
func (b *Broker) Close() error {
	return b.client.Close()
}
