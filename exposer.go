package exposer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/exposer/internal/logging"
	httpAdapter "github.com/aretw0/exposer/pkg/adapters/http"
	"github.com/aretw0/exposer/pkg/adapters/memory"
	"github.com/aretw0/exposer/pkg/codec"
	"github.com/aretw0/exposer/pkg/domain"
	"github.com/aretw0/exposer/pkg/observability"
	"github.com/aretw0/exposer/pkg/ports"
	"github.com/aretw0/exposer/pkg/synth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Defaults used when no option overrides them.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
)

// Engine registers models and serves their synthesized endpoints.
// Models are registered before serving begins; the route table is
// immutable afterwards.
type Engine struct {
	registry        *codec.Registry
	logger          *slog.Logger
	addr            string
	shutdownTimeout time.Duration
	promReg         prometheus.Registerer
	metrics         *observability.Metrics
	broker          *memory.Broker
	publishers      []ports.ChangePublisher

	mu      sync.Mutex
	routes  []*synth.Routes
	names   map[string]struct{}
	cancels []func()
	sealed  bool
	handler http.Handler
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAddr sets the listen address used by Start and Run.
func WithAddr(addr string) Option {
	return func(e *Engine) {
		e.addr = addr
	}
}

// WithMetrics registers the engine collectors with reg. When reg is also a
// prometheus.Gatherer it is served at /metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.promReg = reg
	}
}

// WithPublisher forwards every field change to p, in addition to the
// built-in event stream.
func WithPublisher(p ports.ChangePublisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publishers = append(e.publishers, p)
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown when the serving context ends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.shutdownTimeout = d
	}
}

// New creates an Engine resolving codecs from reg, or from codec.Default
// when reg is nil.
func New(reg *codec.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = codec.Default()
	}
	e := &Engine{
		registry:        reg,
		logger:          logging.NewNop(),
		addr:            DefaultAddr,
		shutdownTimeout: DefaultShutdownTimeout,
		names:           make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.broker = memory.NewBroker(memory.WithLogger(e.logger))

	if e.promReg != nil {
		m, err := observability.NewMetrics(e.promReg)
		if err != nil {
			e.logger.Warn("Metrics disabled", "err", err)
		} else {
			e.metrics = m
		}
	}
	return e
}

// Register synthesizes the endpoints of model under name. Every exposed
// Field is observed so that its changes reach the event stream and the
// configured publishers.
func (e *Engine) Register(name string, model any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sealed {
		return fmt.Errorf("register %q: %w", name, domain.ErrEngineStarted)
	}

	routes, err := synth.Synthesize(name, model, e.registry)
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	if _, exists := e.names[routes.Prefix]; exists {
		return fmt.Errorf("register %q: %w", name, domain.ErrModelExists)
	}

	logger := e.logger.With("model", routes.Prefix)
	for _, ep := range routes.Fields {
		e.cancels = append(e.cancels, ep.Field.Subscribe(e.notifier(ep, logger)))
	}

	e.names[routes.Prefix] = struct{}{}
	e.routes = append(e.routes, routes)
	logger.Info("Model registered", "fields", len(routes.Fields))
	return nil
}

func (e *Engine) notifier(ep *synth.FieldEndpoint, logger *slog.Logger) func(old, new any) {
	return func(_, v any) {
		wire, err := ep.Codec.Encode(v)
		if err != nil {
			logger.Warn("Change not published", "path", ep.Path, "err", err)
			return
		}
		change := domain.Change{
			Timestamp: time.Now().UTC(),
			Model:     ep.Model,
			Path:      ep.Path,
			Value:     wire,
		}
		ctx := context.Background()
		if err := e.broker.Publish(ctx, change); err != nil {
			logger.Warn("Change stream publish failed", "path", ep.Path, "err", err)
		}
		for _, p := range e.publishers {
			if err := p.Publish(ctx, change); err != nil {
				logger.Warn("Change publish failed", "path", ep.Path, "err", err)
			}
		}
	}
}

// Routes returns the endpoint sets of every registered model, in
// registration order.
func (e *Engine) Routes() []*synth.Routes {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*synth.Routes, len(e.routes))
	copy(out, e.routes)
	return out
}

// Subscribe delivers the changes of the exposed fields of model.
func (e *Engine) Subscribe(ctx context.Context, model string) (<-chan domain.Change, func(), error) {
	return e.broker.Subscribe(ctx, model)
}

// Handler returns the HTTP handler for all registered models. The first
// call freezes the codec registry and closes registration.
func (e *Engine) Handler() http.Handler {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handler != nil {
		return e.handler
	}
	e.sealed = true
	e.registry.Freeze()

	opts := []httpAdapter.Option{
		httpAdapter.WithSubscriber(e.broker),
		httpAdapter.WithMetrics(e.metrics),
		httpAdapter.WithLogger(e.logger),
		httpAdapter.WithVersion(Version),
	}
	if g, ok := e.promReg.(prometheus.Gatherer); ok && e.metrics != nil {
		opts = append(opts, httpAdapter.WithMetricsHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
	e.handler = httpAdapter.NewHandler(staticRoutes(e.routes), opts...)
	return e.handler
}

type staticRoutes []*synth.Routes

func (s staticRoutes) Routes() []*synth.Routes { return s }

// Close stops observing registered fields. It does not stop servers
// started with Start.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
	return nil
}

// Handle controls a server started with Start.
type Handle struct {
	srv *http.Server
	ln  net.Listener

	serveDone chan struct{}
	serveErr  error

	stopOnce sync.Once
	stopped  chan struct{}
	stopErr  error
}

// Start listens on the configured address and serves in the background.
// The server is shut down gracefully when ctx ends or Stop is called.
func (e *Engine) Start(ctx context.Context) (*Handle, error) {
	handler := e.Handler()

	ln, err := net.Listen("tcp", e.addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", e.addr, err)
	}

	h := &Handle{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:        ln,
		serveDone: make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	go func() {
		defer close(h.serveDone)
		e.logger.Info("Serving", "addr", ln.Addr().String())
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.serveErr = err
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), e.shutdownTimeout)
			defer cancel()
			if err := h.Stop(shutdownCtx); err != nil {
				e.logger.Warn("Graceful shutdown did not complete", "timeout", e.shutdownTimeout, "err", err)
			}
			e.logger.Info("Server stopped")
		case <-h.serveDone:
		}
	}()

	return h, nil
}

// Addr returns the bound listen address.
func (h *Handle) Addr() net.Addr {
	return h.ln.Addr()
}

// Stop shuts the server down, waiting for in-flight requests until ctx
// ends, after which remaining connections are closed.
func (h *Handle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		if err := h.srv.Shutdown(ctx); err != nil {
			h.stopErr = err
			h.srv.Close()
		}
		close(h.stopped)
	})
	<-h.stopped
	<-h.serveDone
	return h.stopErr
}

// Wait blocks until the server has stopped and returns the serve error,
// if any.
func (h *Handle) Wait() error {
	<-h.serveDone
	if h.serveErr != nil {
		return h.serveErr
	}
	<-h.stopped
	return h.stopErr
}

// Run serves until ctx ends, then shuts down gracefully.
func (e *Engine) Run(ctx context.Context) error {
	h, err := e.Start(ctx)
	if err != nil {
		return err
	}
	return h.Wait()
}
