package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetadataPreservesInsertionOrder(t *testing.T) {
	m := NewMetadata()
	m.Set("zebra", "1")
	m.Set("apple", "2")
	m.Set("mango", "3")

	want := []string{"zebra", "apple", "mango"}
	if diff := cmp.Diff(want, m.Keys()); diff != "" {
		t.Errorf("key order (-want +got):\n%s", diff)
	}

	// Updating an existing key keeps its original position.
	m.Set("apple", "updated")
	if diff := cmp.Diff(want, m.Keys()); diff != "" {
		t.Errorf("key order after update (-want +got):\n%s", diff)
	}
	if v, _ := m.Get("apple"); v != "updated" {
		t.Errorf("apple = %q, want updated", v)
	}
}

func TestMetadataJSONOrder(t *testing.T) {
	m := NewMetadata("zebra", "1", "apple", "2", "mango", "3")
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"zebra":"1","apple":"2","mango":"3"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var back Metadata
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m.Equal(&back) {
		t.Error("round trip lost order or values")
	}
}

func TestMetadataEqual(t *testing.T) {
	a := NewMetadata("k1", "v1", "k2", "v2")
	b := NewMetadata("k1", "v1", "k2", "v2")
	if !a.Equal(b) {
		t.Error("identical metadata not equal")
	}

	// Same pairs, different order: not equal, order is part of identity.
	c := NewMetadata("k2", "v2", "k1", "v1")
	if a.Equal(c) {
		t.Error("reordered metadata reported equal")
	}

	var nilMeta *Metadata
	if !nilMeta.Equal(nil) {
		t.Error("nil metadata should equal nil")
	}
	if a.Equal(nilMeta) {
		t.Error("populated metadata equal to nil")
	}
}

func TestMetadataRangeStopsEarly(t *testing.T) {
	m := NewMetadata("a", "1", "b", "2", "c", "3")
	var visited int
	m.Range(func(key, value string) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("visited %d keys, want 2", visited)
	}
}
