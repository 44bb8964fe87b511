package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is an insertion-ordered string map. JSON round-trips preserve
// key order exactly, which keeps serialized units byte-stable across
// load/save cycles.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata builds an ordered map from alternating key/value pairs.
func NewMetadata(pairs ...string) *Metadata {
	m := &Metadata{values: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set inserts or updates a key. New keys keep insertion order.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it exists.
func (m *Metadata) Get(key string) (string, bool) {
	if m == nil || m.values == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of keys.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Range calls fn for each key/value pair in insertion order; returning
// false stops the walk.
func (m *Metadata) Range(fn func(key, value string) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy preserving order.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	cp := &Metadata{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]string, len(m.values)),
	}
	for k, v := range m.values {
		cp.values[k] = v
	}
	return cp
}

// Equal reports whether two maps hold the same pairs in the same order.
// go-cmp picks this up for struct diffs.
func (m *Metadata) Equal(other *Metadata) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m == nil || other == nil {
		return m.Len() == other.Len()
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

// MarshalJSON emits a JSON object with keys in insertion order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, recording keys in document order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected JSON object, got %v", tok)
	}
	m.keys = nil
	m.values = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metadata: non-string key %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("metadata: value for %q: %w", key, err)
		}
		m.Set(key, value)
	}
	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
