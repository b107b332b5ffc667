package changescope

import "bytes"

// ResultKind distinguishes structured results from the raw-text fallback.
type ResultKind int

// Result kinds.
const (
	ResultRaw ResultKind = iota
	ResultStructured
)

// Result is the normalized outcome of a model response: either a parsed
// mapping or the cleaned response text when it could not be parsed.
type Result struct {
	Kind    ResultKind
	Mapping Mapping // Set when Kind is ResultStructured
	Raw     string  // Set when Kind is ResultRaw
}

// StructuredResult returns a structured Result for m.
func StructuredResult(m Mapping) Result {
	return Result{Kind: ResultStructured, Mapping: m}
}

// RawResult returns a raw Result for text.
func RawResult(text string) Result {
	return Result{Kind: ResultRaw, Raw: text}
}

// IsStructured reports whether the response parsed into a mapping.
func (r Result) IsStructured() bool {
	return r.Kind == ResultStructured
}

// Text returns the result as text suitable for normalizing again:
// the raw text, or the mapping as JSON.
func (r Result) Text() string {
	return r.String()
}

// String returns the raw text, or the mapping as compact JSON in field order.
func (r Result) String() string {
	if r.Kind == ResultRaw {
		return r.Raw
	}
	var buf bytes.Buffer
	if err := r.Mapping.writeJSON(&buf); err != nil {
		return ""
	}
	return buf.String()
}
