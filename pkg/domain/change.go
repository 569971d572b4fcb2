package domain

import "time"

// Change is emitted when an exposed Field is set.
type Change struct {
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
	// Path is relative to the model, as served under "<model>/<path>".
	Path string `json:"path"`
	// Value is the encoded wire value after the change.
	Value any `json:"value"`
}

// Route returns the full endpoint path of the changed field.
func (c Change) Route() string {
	return c.Model + "/" + c.Path
}
