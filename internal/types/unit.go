// Package types defines the core data entities shared across the memory
// subsystem: the content-addressed experience unit, storage tiers, and
// store health reporting.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Unit is one persisted experience record. Units are content-addressed:
// the ID is a pure function of the content, which gives write-time
// deduplication for free.
type Unit struct {
	ContentID      string    `json:"content_id"`
	Content        string    `json:"content"`
	SemanticVector []float32 `json:"semantic_vector"`
	HRRShape       []float32 `json:"hrr_shape"`
	EmotionVector  PAD       `json:"emotion_vector"`
	Timestamp      time.Time `json:"timestamp"`
	LastAccess     time.Time `json:"last_access"`
	DecayRate      float64   `json:"decay_rate"`
	Importance     float64   `json:"importance"`
	Metadata       *Metadata `json:"metadata"`
}

// PAD is a valence/arousal/dominance affect representation, each component
// in [-1, 1], plus optional discrete tags.
type PAD struct {
	Valence   float64  `json:"valence"`
	Arousal   float64  `json:"arousal"`
	Dominance float64  `json:"dominance"`
	Tags      []string `json:"tags,omitempty"`
}

// Components returns the numeric tuple as a slice, for vector math.
func (p PAD) Components() []float64 {
	return []float64{p.Valence, p.Arousal, p.Dominance}
}

// ContentID computes the deterministic identifier for a piece of content.
func ContentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Validate checks the unit invariants. Dimension is the configured vector
// length; pass 0 to skip the dimension check.
func (u *Unit) Validate(dimension int) error {
	if u.ContentID == "" {
		return fmt.Errorf("unit has empty content_id")
	}
	if u.Content == "" {
		return fmt.Errorf("unit %s has empty content", u.ContentID)
	}
	if want := ContentID(u.Content); want != u.ContentID {
		return fmt.Errorf("unit %s: content_id does not match content hash %s", u.ContentID, want)
	}
	if u.Importance < 0 || u.Importance > 1 {
		return fmt.Errorf("unit %s: importance %.4f outside [0,1]", u.ContentID, u.Importance)
	}
	if u.DecayRate <= 0 {
		return fmt.Errorf("unit %s: decay_rate %.4f must be positive", u.ContentID, u.DecayRate)
	}
	if u.LastAccess.Before(u.Timestamp) {
		return fmt.Errorf("unit %s: last_access precedes timestamp", u.ContentID)
	}
	if dimension > 0 {
		if len(u.SemanticVector) != dimension {
			return fmt.Errorf("unit %s: semantic_vector has %d dims, want %d", u.ContentID, len(u.SemanticVector), dimension)
		}
		if len(u.HRRShape) != dimension {
			return fmt.Errorf("unit %s: hrr_shape has %d dims, want %d", u.ContentID, len(u.HRRShape), dimension)
		}
	}
	return nil
}

// Clone returns a deep copy. Store snapshots hand out clones so concurrent
// readers never observe in-place mutation.
func (u *Unit) Clone() *Unit {
	cp := *u
	cp.SemanticVector = append([]float32(nil), u.SemanticVector...)
	cp.HRRShape = append([]float32(nil), u.HRRShape...)
	cp.EmotionVector.Tags = append([]string(nil), u.EmotionVector.Tags...)
	cp.Metadata = u.Metadata.Clone()
	return &cp
}

// Tier returns the storage tier recorded in metadata, defaulting to hot
// for freshly ingested units.
func (u *Unit) Tier() Tier {
	if u.Metadata != nil {
		if v, ok := u.Metadata.Get(MetaTier); ok {
			if t, err := ParseTier(v); err == nil {
				return t
			}
		}
	}
	return TierHot
}

// Well-known metadata keys.
const (
	MetaType      = "type"
	MetaSessionID = "session_id"
	MetaTier      = "tier"
	MetaTags      = "tags"
)
