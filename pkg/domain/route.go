package domain

// RouteKind distinguishes field endpoints from model endpoints.
type RouteKind string

const (
	RouteField  RouteKind = "field"
	RouteModel  RouteKind = "model"
	RouteEvents RouteKind = "events"
)

// RouteInfo describes one synthesized endpoint.
type RouteInfo struct {
	Method string    `json:"method"`
	Path   string    `json:"path"`
	Kind   RouteKind `json:"kind"`
	Model  string    `json:"model"`
	// Type is the declared Go type of a field endpoint.
	Type string `json:"type,omitempty"`
}
