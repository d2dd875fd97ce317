// Package keycase converts snake_case JSON keys to camelCase.
//
// Storage and the API speak snake_case; front ends expect camelCase. The
// transform is generic and recursive so any response body can be converted
// without per-type DTOs.
package keycase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Header lets a caller ask the server for camelCase keys.
	Header = "X-Key-Case"
	// Camel is the Header value that enables the transform.
	Camel = "camel"
)

// ToCamel converts a snake_case key to camelCase. Only an underscore followed
// by a lowercase ASCII letter is folded, so "shift_id" becomes "shiftId" while
// "slot_1" and "_private" keep their underscores.
func ToCamel(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if ch == '_' && i+1 < len(key) && i > 0 {
			next := key[i+1]
			if next >= 'a' && next <= 'z' {
				b.WriteByte(next - 'a' + 'A')
				i++
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// Transform walks decoded JSON (maps, slices, scalars) and returns a copy with
// every object key camelised.
func Transform(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for key, value := range typed {
			out[ToCamel(key)] = Transform(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = Transform(item)
		}
		return out
	default:
		return v
	}
}

// CamelizeValue round-trips any JSON-serialisable value through its JSON form
// and returns the camelised generic representation.
func CamelizeValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return Transform(generic), nil
}
