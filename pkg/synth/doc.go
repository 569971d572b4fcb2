/*
Package synth turns the fields discovered in a model into endpoints.

Each exposed Field gets a FieldEndpoint under "<model>/<path>" offering a
plain read and a read-with-optional-write. The registered model as a whole
gets a ModelEndpoint that reads a full snapshot and applies partial updates.
Endpoints are transport independent; see pkg/adapters/http for the HTTP binding.
*/
package synth
