package http

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxValueBytes bounds the ?value= literal of a field write.
const MaxValueBytes = 4096

var (
	ErrValueTooLarge = errors.New("value exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("value contains invalid UTF-8 sequences")
)

// sanitizeValue rejects oversized or malformed query literals and strips
// control characters other than newline, tab and carriage return, so that
// stored strings cannot carry terminal escapes into logs.
func sanitizeValue(raw string) (string, error) {
	if len(raw) > MaxValueBytes {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrValueTooLarge, len(raw), MaxValueBytes)
	}
	if !utf8.ValidString(raw) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(raw, unsafeControl) < 0 {
		return raw, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, raw), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
