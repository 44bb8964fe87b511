// Package predictor estimates how likely a unit is to be accessed again,
// from a bounded in-memory history of past accesses. The history is a ring
// buffer and is not persisted: predictions are advisory and rebuild
// naturally as a process accumulates accesses.
package predictor

import (
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"mnemo/internal/config"
	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// accessRecord is one observed access.
type accessRecord struct {
	unitID     string
	accessType string
	at         time.Time
	contextIDs []string
	engagement float64
}

// Predictor tracks accesses and scores future access likelihood.
// Safe for concurrent use.
type Predictor struct {
	mu       sync.RWMutex
	ring     []accessRecord
	next     int
	size     int
	capacity int
	halfLife time.Duration
	now      func() time.Time
}

// New creates a predictor with the configured buffer capacity and
// temporal half-life.
func New(cfg config.PredictorConfig) *Predictor {
	capacity := cfg.BufferCapacity
	if capacity <= 0 {
		capacity = 1000
	}
	halfLife := cfg.TemporalHalfLife
	if halfLife <= 0 {
		halfLife = 12 * time.Hour
	}
	return &Predictor{
		ring:     make([]accessRecord, capacity),
		capacity: capacity,
		halfLife: halfLife,
		now:      time.Now,
	}
}

// RecordAccess appends an access to the history, evicting the oldest
// record once the buffer is full. accessType tags how the unit was
// reached ("retrieval", "ingest-dedup", ...); engagement in [0,1] weights
// how strongly that access counts toward the temporal recency boost.
func (p *Predictor) RecordAccess(unitID, accessType string, contextIDs []string, engagement float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx := make([]string, len(contextIDs))
	copy(ctx, contextIDs)
	p.ring[p.next] = accessRecord{
		unitID:     unitID,
		accessType: accessType,
		at:         p.now(),
		contextIDs: ctx,
		engagement: clamp01(engagement),
	}
	p.next = (p.next + 1) % p.capacity
	if p.size < p.capacity {
		p.size++
	}
	logging.PredictorDebug("Recorded access %s (history %d/%d)", shortID(unitID), p.size, p.capacity)
}

// HistoryLen reports how many accesses are currently retained.
func (p *Predictor) HistoryLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// PredictFrequency scores a unit in [0,1]: base access frequency over the
// retained history, context overlap with the current access context,
// temporal recency of the unit's own accesses weighted by how engaging
// each access was, and a small bump for interrogative content. An empty
// history predicts zero.
func (p *Predictor) PredictFrequency(unit *types.Unit, contextIDs []string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.size == 0 {
		return 0
	}

	now := p.now()
	var hits int
	var overlapSum float64
	var overlapCount int
	var temporal float64
	for i := 0; i < p.size; i++ {
		rec := &p.ring[i]
		if rec.unitID != unit.ContentID {
			continue
		}
		hits++
		if len(contextIDs) > 0 {
			overlapSum += jaccard(rec.contextIDs, contextIDs)
			overlapCount++
		}
		age := now.Sub(rec.at)
		if age < 0 {
			age = 0
		}
		// Engagement scales recency; a zero-engagement access still
		// counts at half weight.
		w := halfLifeDecay(age, p.halfLife) * (0.5 + 0.5*rec.engagement)
		if w > temporal {
			temporal = w
		}
	}

	base := float64(hits) / float64(p.size)
	var overlap float64
	if overlapCount > 0 {
		overlap = overlapSum / float64(overlapCount)
	}
	var interrogative float64
	if isInterrogative(unit.Content) {
		interrogative = 1
	}

	score := 0.4*base + 0.25*overlap + 0.25*temporal + 0.10*interrogative
	return clamp01(score)
}

func halfLifeDecay(age, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 0
	}
	return math.Pow(0.5, age.Seconds()/halfLife.Seconds())
}

// jaccard is |A∩B| / |A∪B| over id sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	union := len(set)
	var inter int
	seen := make(map[string]bool, len(b))
	for _, id := range b {
		if seen[id] {
			continue
		}
		seen[id] = true
		if set[id] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

var interrogativeLeads = []string{"what", "why", "how", "when", "where", "who", "which", "can", "should", "is", "are", "do", "does"}

// isInterrogative flags question-like content: a question mark, or a
// leading interrogative word.
func isInterrogative(content string) bool {
	if strings.Contains(content, "?") {
		return true
	}
	fields := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(fields) == 0 {
		return false
	}
	for _, lead := range interrogativeLeads {
		if fields[0] == lead {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
