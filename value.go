package changescope

import (
	"bytes"
	"encoding/json"
)

// Kind identifies the shape of a Value.
type Kind int

// Value kinds. Scalars carry their text in Value.Text.
const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNull
	KindSequence
	KindMapping
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a JSON value decoded from a model response.
// Mappings keep their fields in document order.
type Value struct {
	Kind   Kind
	Text   string  // Scalar text: decoded string, number literal, "true"/"false", "null"
	Items  []Value // KindSequence elements
	Fields Mapping // KindMapping fields
}

// Field is a single key/value pair of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// Mapping is an ordered list of fields.
type Mapping []Field

// Get returns the value stored under key.
func (m Mapping) Get(key string) (Value, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the field keys in order.
func (m Mapping) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

// set replaces the value of an existing key in place, or appends a new field.
func (m Mapping) set(key string, v Value) Mapping {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = v
			return m
		}
	}
	return append(m, Field{Key: key, Value: v})
}

// StringValue returns a KindString value.
func StringValue(s string) Value {
	return Value{Kind: KindString, Text: s}
}

// SequenceValue returns a KindSequence value.
func SequenceValue(items ...Value) Value {
	return Value{Kind: KindSequence, Items: items}
}

// MappingValue returns a KindMapping value.
func MappingValue(fields ...Field) Value {
	return Value{Kind: KindMapping, Fields: fields}
}

// IsScalar reports whether the value is a string, number, bool or null.
func (v Value) IsScalar() bool {
	return v.Kind != KindSequence && v.Kind != KindMapping
}

// IsEmpty reports whether the value is null or an empty string.
func (v Value) IsEmpty() bool {
	return v.Kind == KindNull || (v.Kind == KindString && v.Text == "")
}

// String returns the text of a scalar, or compact JSON for sequences and mappings.
func (v Value) String() string {
	if v.IsScalar() {
		return v.Text
	}
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// MarshalJSON implements json.Marshaler, preserving mapping order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindString:
		if err := writeJSONString(buf, v.Text); err != nil {
			return err
		}
	case KindNumber, KindBool, KindNull:
		buf.WriteString(v.Text)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		return v.Fields.writeJSON(buf)
	}
	return nil
}

// MarshalJSON implements json.Marshaler, preserving field order.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m Mapping) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, f.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := f.Value.writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeJSONString writes s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates each value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
