package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/exposer/pkg/codec"
	"github.com/aretw0/exposer/pkg/observability"
	"github.com/aretw0/exposer/pkg/snapshot"
	"github.com/aretw0/exposer/pkg/wire"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error" yaml:"error" msgpack:"error"`
	Message string `json:"message" yaml:"message" msgpack:"message"`
	Code    int    `json:"code" yaml:"code" msgpack:"code"`
}

// render writes v in the format negotiated from the Accept header.
func render(w http.ResponseWriter, r *http.Request, status int, v any) {
	format := wire.Negotiate(r.Header.Get("Accept"))
	data, err := format.Marshal(v)
	if err != nil {
		slog.Error("Response encode failed", "format", format.Name, "err", err)
		http.Error(w, "response encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType)
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	render(w, r, status, ErrorResponse{Error: code, Message: err.Error(), Code: status})
}

// fail maps an endpoint error to its status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, codec.ErrUnsupportedType):
		s.logger.Error("No codec for field", "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, "unsupported_type", err)
	case errors.Is(err, codec.ErrCodec):
		writeError(w, r, http.StatusBadRequest, "invalid_value", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "canceled", err)
	default:
		s.logger.Error("Endpoint failed", "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, codec.ErrCodec):
		return observability.OutcomeInvalid
	default:
		return observability.OutcomeError
	}
}

func fieldFailures(err error) int {
	var ae *snapshot.ApplyError
	if errors.As(err, &ae) {
		return len(ae.Failures)
	}
	return 0
}
