package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/exposer/internal/logging"
	"github.com/aretw0/exposer/pkg/domain"
	"github.com/aretw0/exposer/pkg/observability"
	"github.com/aretw0/exposer/pkg/ports"
	"github.com/aretw0/exposer/pkg/synth"
	"github.com/aretw0/exposer/pkg/wire"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// FieldErrorsHeader carries the number of keys a model write could not apply.
const FieldErrorsHeader = "X-Exposer-Field-Errors"

// EventsSegment is the path segment of a model's change stream.
const EventsSegment = "_events"

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Source provides the synthesized routes to serve.
type Source interface {
	Routes() []*synth.Routes
}

// Option configures a Server.
type Option func(*Server)

// WithSubscriber enables the change stream of every model.
func WithSubscriber(sub ports.ChangeSubscriber) Option {
	return func(s *Server) { s.subscriber = sub }
}

// WithMetrics records request and field metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server binds synthesized endpoints to HTTP.
type Server struct {
	source         Source
	subscriber     ports.ChangeSubscriber
	metrics        *observability.Metrics
	metricsHandler http.Handler
	logger         *slog.Logger
	version        string
}

// NewHandler creates the HTTP handler serving every route of src.
// Routes are read once; models registered afterwards are not served.
func NewHandler(src Source, opts ...Option) http.Handler {
	s := &Server{
		source:  src,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/_routes", s.GetRoutes)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	for _, routes := range src.Routes() {
		s.mount(r, routes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", fmt.Errorf("no endpoint at %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Errorf("%s not allowed on %s", r.Method, r.URL.Path))
	})

	return enableCORS(r)
}

func (s *Server) mount(r chi.Router, routes *synth.Routes) {
	base := "/" + routes.Prefix
	r.Get(base, s.readModel(routes.Model))
	r.Post(base, s.writeModel(routes.Model))
	r.Get(base+"/"+EventsSegment, s.streamChanges(routes.Prefix))

	for _, ep := range routes.Fields {
		if ep.Path == EventsSegment {
			s.logger.Warn("Field shadowed by change stream", "route", ep.Route)
			continue
		}
		path := "/" + ep.Route
		r.Get(path, s.readField(ep))
		r.Post(path, s.writeField(ep))
		r.Put(path, s.writeField(ep))
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		w.Header().Set("Access-Control-Expose-Headers", FieldErrorsHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(r.Method, route, strconv.Itoa(status), elapsed)
		s.logger.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	models := make([]string, 0)
	for _, routes := range s.source.Routes() {
		models = append(models, routes.Prefix)
	}
	render(w, r, http.StatusOK, map[string]any{
		"app":     "exposer-http",
		"version": strings.TrimSpace(s.version),
		"models":  models,
		"events":  s.subscriber != nil,
	})
}

// GetRoutes handles the GET /_routes request.
func (s *Server) GetRoutes(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, RouteTable(s.source.Routes()))
}

// RouteTable lists every endpoint synthesized for routes, model endpoints
// first, in registration order.
func RouteTable(routes []*synth.Routes) []domain.RouteInfo {
	var table []domain.RouteInfo
	for _, rs := range routes {
		base := "/" + rs.Prefix
		table = append(table,
			domain.RouteInfo{Method: http.MethodGet, Path: base, Kind: domain.RouteModel, Model: rs.Prefix},
			domain.RouteInfo{Method: http.MethodPost, Path: base, Kind: domain.RouteModel, Model: rs.Prefix},
			domain.RouteInfo{Method: http.MethodGet, Path: base + "/" + EventsSegment, Kind: domain.RouteEvents, Model: rs.Prefix},
		)
		for _, ep := range rs.Fields {
			if ep.Path == EventsSegment {
				continue
			}
			typ := ep.Field.Type().String()
			for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
				table = append(table, domain.RouteInfo{
					Method: m,
					Path:   "/" + ep.Route,
					Kind:   domain.RouteField,
					Model:  rs.Prefix,
					Type:   typ,
				})
			}
		}
	}
	return table
}

func (s *Server) readField(ep *synth.FieldEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has("value") {
			v, err := ep.Read(r.Context())
			if err != nil {
				s.fail(w, r, err)
				return
			}
			s.metrics.FieldRead(ep.Model, ep.Path)
			render(w, r, http.StatusOK, v)
			return
		}

		raw, err := sanitizeValue(q.Get("value"))
		if err != nil {
			s.metrics.FieldWrite(ep.Model, ep.Path, observability.OutcomeInvalid)
			writeError(w, r, http.StatusBadRequest, "invalid_input", err)
			return
		}
		v, err := ep.ReadWrite(r.Context(), &raw)
		s.metrics.FieldWrite(ep.Model, ep.Path, outcome(err))
		if err != nil {
			s.logger.Warn("Field write rejected", "route", ep.Route, "err", err)
			s.fail(w, r, err)
			return
		}
		render(w, r, http.StatusOK, v)
	}
}

func (s *Server) writeField(ep *synth.FieldEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := readBody(w, r)
		if !ok {
			return
		}
		v, err := ep.Write(r.Context(), payload)
		s.metrics.FieldWrite(ep.Model, ep.Path, outcome(err))
		if err != nil {
			s.logger.Warn("Field write rejected", "route", ep.Route, "err", err)
			s.fail(w, r, err)
			return
		}
		render(w, r, http.StatusOK, v)
	}
}

func (s *Server) readModel(ep *synth.ModelEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := ep.Read(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		render(w, r, http.StatusOK, snap)
	}
}

func (s *Server) writeModel(ep *synth.ModelEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := readBody(w, r)
		if !ok {
			return
		}
		data, ok := payload.(map[string]any)
		if !ok {
			s.metrics.ModelWrite(ep.Name, observability.OutcomeInvalid)
			writeError(w, r, http.StatusBadRequest, "invalid_body", fmt.Errorf("expected an object, got %T", payload))
			return
		}

		snap, err := ep.Write(r.Context(), data)
		if n := fieldFailures(err); n > 0 {
			s.metrics.ModelWrite(ep.Name, observability.OutcomePartial)
			s.logger.Warn("Model write partially applied", "model", ep.Name, "failed", n, "err", err)
			w.Header().Set(FieldErrorsHeader, strconv.Itoa(n))
			render(w, r, http.StatusOK, snap)
			return
		}
		if err != nil {
			s.metrics.ModelWrite(ep.Name, observability.OutcomeError)
			s.fail(w, r, err)
			return
		}
		s.metrics.ModelWrite(ep.Name, observability.OutcomeOK)
		render(w, r, http.StatusOK, snap)
	}
}

// streamChanges handles GET /{model}/_events (SSE). The optional watch
// parameter is a comma separated list of field paths to keep.
func (s *Server) streamChanges(model string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.subscriber == nil {
			writeError(w, r, http.StatusNotImplemented, "events_disabled", errors.New("change stream not configured"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, r, http.StatusInternalServerError, "streaming_unsupported", errors.New("streaming not supported"))
			return
		}

		changes, cancel, err := s.subscriber.Subscribe(r.Context(), model)
		if err != nil {
			s.logger.Error("SSE: subscribe failed", "model", model, "err", err)
			writeError(w, r, http.StatusServiceUnavailable, "subscribe_failed", err)
			return
		}
		defer cancel()

		watch := make(map[string]bool)
		if raw := r.URL.Query().Get("watch"); raw != "" {
			for _, p := range strings.Split(raw, ",") {
				if p = strings.Trim(strings.TrimSpace(p), "/"); p != "" {
					watch[p] = true
				}
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
		flusher.Flush()
		s.logger.Info("SSE: client subscribed", "model", model, "watch", len(watch))

		for {
			select {
			case <-r.Context().Done():
				s.logger.Info("SSE: client disconnected", "model", model)
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if len(watch) > 0 && !watch[c.Path] {
					continue
				}
				data, err := json.Marshal(c)
				if err != nil {
					s.logger.Warn("SSE: dropping unencodable change", "route", c.Route(), "err", err)
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}

func readBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	format, err := wire.ForContentType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, http.StatusUnsupportedMediaType, "unsupported_media_type", err)
		return nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", err)
		return nil, false
	}
	if len(body) == 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_body", errors.New("empty request body"))
		return nil, false
	}
	v, err := format.Unmarshal(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err)
		return nil, false
	}
	return v, true
}
