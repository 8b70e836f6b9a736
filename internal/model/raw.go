package model

import (
	"strconv"
)

// Raw is a wire record as decoded from an upstream response. The
// upstream schemas drift between call sites (id vs treatmentID,
// createAt vs createdAt), so records stay schemaless until the key
// resolver has normalized them.
type Raw map[string]any

// Envelope is the uniform upstream response shape. Bare-array bodies
// are normalized into it by the fetcher.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       []Raw  `json:"data"`
}

// Str returns the record field rendered as a string. JSON numbers
// arrive as float64, and several upstream ids are numeric, so numeric
// values are formatted without a trailing fraction.
func (r Raw) Str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// Has reports whether the field is present and non-null.
func (r Raw) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Clone returns a shallow copy. Join output must never alias the
// source collections, each reload produces a fresh generation.
func (r Raw) Clone() Raw {
	out := make(Raw, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
