package synth

import (
	"encoding/json"
	"io"
	"strings"
)

// Unpack interprets a raw text parameter. Text holding a single JSON value
// (number, boolean, null, string, array or object) is decoded, with numbers
// kept as json.Number; anything else is returned unchanged as a string.
// Unpack never fails: type validity is left to the codec.
func Unpack(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	if _, err := dec.Token(); err != io.EOF {
		return raw
	}
	return v
}
