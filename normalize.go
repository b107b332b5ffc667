package changescope

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/buger/jsonparser"
)

// TerminationSentinel is the token agent frameworks append when a conversation ends.
const TerminationSentinel = "TERMINATE"

const (
	fenceMarker     = "```"
	jsonFenceMarker = "```json"
	snippetLength   = 200
)

// ErrNotObject is reported when a response is valid JSON but not a JSON object.
var ErrNotObject = errors.New("response is not a JSON object")

// Normalizer turns raw model responses into Results.
type Normalizer struct {
	// Logger receives a diagnostic line when a response cannot be parsed.
	// A nil Logger discards diagnostics.
	Logger *slog.Logger
}

// Normalize cleans and parses raw using a Normalizer without logging.
func Normalize(raw string) Result {
	return (&Normalizer{}).Normalize(raw)
}

// Normalize cleans raw and parses it as a JSON object. When parsing fails the
// cleaned text is returned as a raw Result. Normalize never fails.
func (n *Normalizer) Normalize(raw string) Result {
	text := Clean(raw)
	m, err := ParseMapping(text)
	if err != nil {
		n.logger().Warn("response is not structured",
			"error", err,
			"snippet", snippet(text))
		return RawResult(text)
	}
	return StructuredResult(m)
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return n.Logger
}

// Clean strips the termination sentinel, code fences and control characters
// from a model response. The cleaning pass repeats until the text is stable,
// so Clean(Clean(s)) == Clean(s). Invalid UTF-8 bytes come back as U+FFFD.
func Clean(raw string) string {
	text := raw
	for {
		next := cleanPass(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanPass(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, TerminationSentinel, "")
	if len(s) >= len(jsonFenceMarker) && strings.EqualFold(s[:len(jsonFenceMarker)], jsonFenceMarker) {
		s = s[len(jsonFenceMarker):]
	}
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, fenceMarker) {
		s = strings.TrimSpace(strings.TrimSuffix(s, fenceMarker))
	}
	return strings.Map(func(r rune) rune {
		if r < 32 {
			return ' '
		}
		return r
	}, s)
}

// ParseMapping parses text as a JSON object, keeping fields (including those of
// nested objects) in document order. Duplicate keys keep the position of their
// first occurrence and the value of the last.
func ParseMapping(text string) (Mapping, error) {
	data := []byte(text)
	if !json.Valid(data) {
		// Run the decoder for a descriptive syntax error.
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return nil, errors.New("invalid JSON")
	}
	if first := strings.TrimSpace(text); first == "" || first[0] != '{' {
		return nil, ErrNotObject
	}
	return parseObject(data)
}

func parseObject(data []byte) (Mapping, error) {
	m := Mapping{}
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := parseValue(value, dataType)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		m = m.set(k, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parseArray(data []byte) ([]Value, error) {
	items := []Value{}
	var walkErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if walkErr != nil {
			return
		}
		if err != nil {
			walkErr = err
			return
		}
		v, err := parseValue(value, dataType)
		if err != nil {
			walkErr = err
			return
		}
		items = append(items, v)
	})
	if err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}
	return items, nil
}

func parseValue(data []byte, dataType jsonparser.ValueType) (Value, error) {
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case jsonparser.Number:
		return Value{Kind: KindNumber, Text: string(data)}, nil
	case jsonparser.Boolean:
		return Value{Kind: KindBool, Text: string(data)}, nil
	case jsonparser.Null:
		return Value{Kind: KindNull, Text: "null"}, nil
	case jsonparser.Array:
		items, err := parseArray(data)
		if err != nil {
			return Value{}, err
		}
		return SequenceValue(items...), nil
	case jsonparser.Object:
		fields, err := parseObject(data)
		if err != nil {
			return Value{}, err
		}
		return MappingValue(fields...), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value type %s", dataType)
	}
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "..."
}
