package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func validUnit(dimension int) *Unit {
	content := "the quick brown fox"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Unit{
		ContentID:      ContentID(content),
		Content:        content,
		SemanticVector: make([]float32, dimension),
		HRRShape:       make([]float32, dimension),
		EmotionVector:  PAD{Valence: 0.2, Arousal: -0.1, Tags: []string{"calm"}},
		Timestamp:      now,
		LastAccess:     now,
		DecayRate:      1.0,
		Importance:     0.5,
		Metadata:       NewMetadata("type", "episode", "tier", "hot"),
	}
}

func TestContentIDDeterministic(t *testing.T) {
	a := ContentID("hello")
	b := ContentID("hello")
	if a != b {
		t.Fatalf("same content produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("id length = %d, want 64 hex chars", len(a))
	}
	if ContentID("hello ") == a {
		t.Fatal("different content produced the same id")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Unit)
		wantErr string
	}{
		{"valid", func(u *Unit) {}, ""},
		{"empty id", func(u *Unit) { u.ContentID = "" }, "empty content_id"},
		{"empty content", func(u *Unit) { u.Content = "" }, "empty content"},
		{"id mismatch", func(u *Unit) { u.Content = "tampered" }, "content_id does not match"},
		{"importance high", func(u *Unit) { u.Importance = 1.2 }, "importance"},
		{"importance low", func(u *Unit) { u.Importance = -0.1 }, "importance"},
		{"zero decay", func(u *Unit) { u.DecayRate = 0 }, "decay_rate"},
		{"access before create", func(u *Unit) { u.LastAccess = u.Timestamp.Add(-time.Hour) }, "last_access precedes"},
		{"wrong dims", func(u *Unit) { u.SemanticVector = make([]float32, 7) }, "semantic_vector"},
		{"wrong shape dims", func(u *Unit) { u.HRRShape = make([]float32, 7) }, "hrr_shape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUnit(16)
			tt.mutate(u)
			err := u.Validate(16)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	u := validUnit(8)
	u.SemanticVector[0] = 1
	cp := u.Clone()

	cp.SemanticVector[0] = 9
	cp.EmotionVector.Tags[0] = "changed"
	cp.Metadata.Set("tier", "cold")

	if u.SemanticVector[0] != 1 {
		t.Error("clone shares semantic vector backing array")
	}
	if u.EmotionVector.Tags[0] != "calm" {
		t.Error("clone shares emotion tags")
	}
	if v, _ := u.Metadata.Get("tier"); v != "hot" {
		t.Error("clone shares metadata")
	}
}

func TestTierFromMetadata(t *testing.T) {
	u := validUnit(8)
	if u.Tier() != TierHot {
		t.Fatalf("tier = %s, want hot", u.Tier())
	}
	u.Metadata.Set(MetaTier, "archive")
	if u.Tier() != TierArchive {
		t.Fatalf("tier = %s, want archive", u.Tier())
	}
	// Garbage tier falls back to hot rather than failing.
	u.Metadata.Set(MetaTier, "lukewarm")
	if u.Tier() != TierHot {
		t.Fatalf("tier = %s, want hot fallback", u.Tier())
	}
}

func TestUnitJSONRoundTrip(t *testing.T) {
	u := validUnit(4)
	u.SemanticVector = []float32{0.1, 0.2, 0.3, 0.4}
	u.HRRShape = []float32{0.4, 0.3, 0.2, 0.1}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Unit
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(u, &back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
