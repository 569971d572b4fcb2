// Package wire encodes wire values for transport. JSON is the default;
// YAML and MessagePack are available through content negotiation.
package wire

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/munnerz/goautoneg"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is one transport encoding of wire values.
type Format struct {
	Name        string
	ContentType string
	Marshal     func(v any) ([]byte, error)
	Unmarshal   func(data []byte) (any, error)
}

var (
	JSON = Format{
		Name:        "json",
		ContentType: "application/json",
		Marshal:     json.Marshal,
		Unmarshal:   unmarshalJSON,
	}
	YAML = Format{
		Name:        "yaml",
		ContentType: "application/yaml",
		Marshal:     yaml.Marshal,
		Unmarshal:   unmarshalYAML,
	}
	MsgPack = Format{
		Name:        "msgpack",
		ContentType: "application/msgpack",
		Marshal:     msgpack.Marshal,
		Unmarshal:   unmarshalMsgPack,
	}
)

var byMediaType = map[string]Format{
	"application/json":        JSON,
	"text/json":               JSON,
	"application/yaml":        YAML,
	"application/x-yaml":      YAML,
	"text/yaml":               YAML,
	"application/msgpack":     MsgPack,
	"application/x-msgpack":   MsgPack,
	"application/vnd.msgpack": MsgPack,
}

// ForContentType returns the format of a request body. An empty content
// type is treated as JSON.
func ForContentType(contentType string) (Format, error) {
	if strings.TrimSpace(contentType) == "" {
		return JSON, nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Format{}, fmt.Errorf("wire: invalid content type %q: %w", contentType, err)
	}
	f, ok := byMediaType[mt]
	if !ok {
		return Format{}, fmt.Errorf("wire: unsupported content type %q", mt)
	}
	return f, nil
}

// offered lists the media types Negotiate can answer with, preferred first.
var offered = []string{
	"application/json",
	"application/yaml",
	"application/msgpack",
	"text/json",
	"text/yaml",
	"application/x-yaml",
	"application/x-msgpack",
	"application/vnd.msgpack",
}

// Negotiate picks the response format for an Accept header. Clauses are
// ranked by q weight, then by specificity; q=0 excludes a media type.
// Anything unsupported falls back to JSON.
func Negotiate(accept string) Format {
	clauses := goautoneg.ParseAccept(accept)
	slices.SortStableFunc(clauses, func(a, b goautoneg.Accept) int {
		if c := cmp.Compare(b.Q, a.Q); c != 0 {
			return c
		}
		return cmp.Compare(specificity(b), specificity(a))
	})

	excluded := make(map[string]bool)
	for _, c := range clauses {
		if c.Q <= 0 && c.Type != "*" && c.SubType != "*" {
			excluded[strings.ToLower(c.Type+"/"+c.SubType)] = true
		}
	}
	for _, c := range clauses {
		if c.Q <= 0 {
			break
		}
		typ, sub := strings.ToLower(c.Type), strings.ToLower(c.SubType)
		for _, mt := range offered {
			if excluded[mt] {
				continue
			}
			t, st, _ := strings.Cut(mt, "/")
			if (typ == "*" || typ == t) && (sub == "*" || sub == st) {
				return byMediaType[mt]
			}
		}
	}
	return JSON
}

func specificity(a goautoneg.Accept) int {
	switch {
	case a.Type == "*":
		return 0
	case a.SubType == "*":
		return 1
	}
	return 2
}

func unmarshalJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("wire: trailing data after JSON value")
	}
	return v, nil
}

func unmarshalYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func unmarshalMsgPack(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
