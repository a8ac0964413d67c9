// Package trace records what an app run did: every reducer application and
// every effect emission, as ordered entries with canonical JSON payloads.
//
// Payloads use the JSON data model without floats, so that the canonical
// form of an entry is byte-stable and can be compared against golden files
// and hashed into an entry id.
package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a payload value. The set of implementations is closed.
type Value interface {
	traceValue()
}

type (
	Null   struct{}
	String string
	Int    int64
	Bool   bool
	Array  []Value
	Object map[string]Value
)

func (Null) traceValue()   {}
func (String) traceValue() {}
func (Int) traceValue()    {}
func (Bool) traceValue()   {}
func (Array) traceValue()  {}
func (Object) traceValue() {}

// SortedKeys returns the keys in canonical order: by UTF-16 code units,
// which differs from Go's byte order outside the BMP.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// FromAny converts any JSON-encodable Go value. Struct tags apply.
// Non-integral numbers are rejected.
func FromAny(v any) (Value, error) {
	if tv, ok := v.(Value); ok {
		return tv, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return Parse(data)
}

// Parse decodes JSON into a Value.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return fromDecoded(raw)
}

func fromDecoded(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %s", val)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

// MarshalJSON encodes o canonically.
func (o Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}

// UnmarshalJSON decodes an object.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	obj, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected object, got %T", v)
	}
	*o = obj
	return nil
}

// MarshalJSON encodes null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON encodes a canonically.
func (a Array) MarshalJSON() ([]byte, error) {
	return Marshal(a)
}
