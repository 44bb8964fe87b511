// Package importance scores units with the multi-factor model: recency,
// access recency, intrinsic baseline, content complexity, semantic
// uniqueness, cognitive-tag density, cross-reference potential, engagement,
// relationship centrality, and predicted access frequency. Every weight
// and half-life comes from configuration; given an identical unit and
// context snapshot the score is deterministic.
package importance

import (
	"math"
	"strings"
	"time"
	"unicode"

	"mnemo/internal/config"
	"mnemo/internal/hrr"
	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// AccessPredictor is the slice of the predictor the model consults.
type AccessPredictor interface {
	PredictFrequency(unit *types.Unit, contextIDs []string) float64
}

// Context is the snapshot a score is computed against. Callers build it
// once per pass so every unit in the pass sees the same world.
type Context struct {
	// Now anchors all decay computations.
	Now time.Time
	// RecentUnits is the bounded window scanned for semantic uniqueness.
	RecentUnits []*types.Unit
	// Degrees and MaxDegree come from the relationship graph.
	Degrees   map[string]int
	MaxDegree int
	// ContextIDs are the unit ids active around the current access,
	// forwarded to the predictor.
	ContextIDs []string
}

// Model computes importance scores.
type Model struct {
	cfg       config.ImportanceConfig
	predictor AccessPredictor
}

// New creates a model. predictor may be nil, in which case the predicted
// access factor contributes zero.
func New(cfg config.ImportanceConfig, predictor AccessPredictor) *Model {
	return &Model{cfg: cfg, predictor: predictor}
}

// SetConfig swaps the factor weights, for config hot-reload.
func (m *Model) SetConfig(cfg config.ImportanceConfig) { m.cfg = cfg }

// UniquenessWindow reports how many recent units the uniqueness factor
// scans. Callers building a Context use it to bound RecentUnits.
func (m *Model) UniquenessWindow() int {
	if m.cfg.UniquenessWindow > 0 {
		return m.cfg.UniquenessWindow
	}
	return 50
}

// Factors is the per-factor breakdown of one score, each in [0,1].
type Factors struct {
	Recency       float64
	AccessRecency float64
	Intrinsic     float64
	Complexity    float64
	Uniqueness    float64
	CognitiveTags float64
	CrossRef      float64
	Engagement    float64
	Centrality    float64
	Predicted     float64
}

// Score computes the weighted importance of a unit, clamped to [0,1].
func (m *Model) Score(u *types.Unit, ctx *Context) float64 {
	f := m.Compute(u, ctx)
	score := m.cfg.RecencyWeight*f.Recency +
		m.cfg.AccessRecencyWeight*f.AccessRecency +
		m.cfg.IntrinsicWeight*f.Intrinsic +
		m.cfg.ComplexityWeight*f.Complexity +
		m.cfg.UniquenessWeight*f.Uniqueness +
		m.cfg.CognitiveTagWeight*f.CognitiveTags +
		m.cfg.CrossRefWeight*f.CrossRef +
		m.cfg.EngagementWeight*f.Engagement +
		m.cfg.CentralityWeight*f.Centrality +
		m.cfg.PredictedWeight*f.Predicted
	score = clamp01(score)
	logging.ImportanceDebug("Scored %s: %.4f", shortID(u.ContentID), score)
	return score
}

// Compute evaluates every factor without applying weights.
func (m *Model) Compute(u *types.Unit, ctx *Context) Factors {
	return Factors{
		Recency:       m.recency(u, ctx.Now),
		AccessRecency: m.accessRecency(u, ctx.Now),
		Intrinsic:     clamp01(u.Importance),
		Complexity:    complexity(u.Content),
		Uniqueness:    uniqueness(u, ctx.RecentUnits),
		CognitiveTags: cognitiveTagDensity(u.Content),
		CrossRef:      crossReference(u.Content),
		Engagement:    engagement(u),
		Centrality:    centrality(u.ContentID, ctx.Degrees, ctx.MaxDegree),
		Predicted:     m.predicted(u, ctx.ContextIDs),
	}
}

// recency decays with unit age. The unit's decay_rate scales the clock:
// rate 2 ages twice as fast.
func (m *Model) recency(u *types.Unit, now time.Time) float64 {
	halfLife := m.cfg.RecencyHalfLife
	if halfLife <= 0 {
		halfLife = 30 * 24 * time.Hour
	}
	age := now.Sub(u.Timestamp)
	if age < 0 {
		age = 0
	}
	scaled := age.Seconds() * u.DecayRate
	return math.Pow(0.5, scaled/halfLife.Seconds())
}

func (m *Model) accessRecency(u *types.Unit, now time.Time) float64 {
	halfLife := m.cfg.AccessHalfLife
	if halfLife <= 0 {
		halfLife = 7 * 24 * time.Hour
	}
	since := now.Sub(u.LastAccess)
	if since < 0 {
		since = 0
	}
	return math.Pow(0.5, since.Seconds()/halfLife.Seconds())
}

func (m *Model) predicted(u *types.Unit, contextIDs []string) float64 {
	if m.predictor == nil {
		return 0
	}
	return clamp01(m.predictor.PredictFrequency(u, contextIDs))
}

// complexity blends vocabulary-tier weighting with length normalization.
// Longer, rarer words score higher; the length factor saturates at fifty
// words so essays do not dominate on bulk alone.
func complexity(content string) float64 {
	words := splitWords(content)
	if len(words) == 0 {
		return 0
	}
	var vocab float64
	for _, w := range words {
		switch {
		case len(w) > 8:
			vocab += 1.0
		case len(w) >= 5:
			vocab += 0.6
		default:
			vocab += 0.3
		}
	}
	vocab /= float64(len(words))
	length := math.Min(float64(len(words))/50.0, 1.0)
	return clamp01(0.7*vocab + 0.3*length)
}

// uniqueness is 1 minus the strongest similarity against the bounded
// recent window. A unit unlike anything recent scores high.
func uniqueness(u *types.Unit, recent []*types.Unit) float64 {
	var best float64
	for _, other := range recent {
		if other.ContentID == u.ContentID {
			continue
		}
		sim, err := hrr.Cosine(u.SemanticVector, other.SemanticVector)
		if err != nil {
			continue
		}
		if sim > best {
			best = sim
		}
	}
	return clamp01(1 - best)
}

// cognitiveWords mark reflective or learning-oriented content.
var cognitiveWords = map[string]bool{
	"think": true, "thought": true, "learn": true, "learned": true,
	"understand": true, "understood": true, "remember": true,
	"realize": true, "realized": true, "idea": true, "plan": true,
	"decide": true, "decided": true, "believe": true, "know": true,
	"wonder": true, "reflect": true, "conclude": true, "insight": true,
}

func cognitiveTagDensity(content string) float64 {
	words := splitWords(content)
	if len(words) == 0 {
		return 0
	}
	var hits int
	for _, w := range words {
		if cognitiveWords[w] {
			hits++
		}
	}
	// One cognitive word in ten is a strongly reflective text.
	return clamp01(10 * float64(hits) / float64(len(words)))
}

// structuralWords signal content that connects to other content.
var structuralWords = map[string]bool{
	"because": true, "therefore": true, "however": true, "related": true,
	"similar": true, "like": true, "unlike": true, "refers": true,
	"compared": true, "example": true, "instance": true, "cause": true,
	"effect": true, "leads": true, "results": true,
}

func crossReference(content string) float64 {
	words := splitWords(content)
	if len(words) == 0 {
		return 0
	}
	var hits float64
	for _, w := range words {
		if structuralWords[w] {
			hits++
		}
	}
	if strings.Contains(content, ":") {
		hits += 0.5
	}
	return clamp01(hits / 3)
}

// engagement reads type metadata and punctuation. Questions and emphatic
// content engage more than flat statements.
func engagement(u *types.Unit) float64 {
	var score float64
	if t, ok := u.Metadata.Get(types.MetaType); ok {
		switch t {
		case "question", "dialogue":
			score += 0.4
		case "reflection", "insight":
			score += 0.3
		}
	}
	if strings.Contains(u.Content, "?") {
		score += 0.3
	}
	if strings.Contains(u.Content, "!") {
		score += 0.2
	}
	lower := strings.ToLower(u.Content)
	if strings.Contains(lower, "i ") || strings.HasPrefix(lower, "i'") {
		score += 0.1
	}
	return clamp01(score)
}

// centrality normalizes graph degree by the maximum degree observed.
func centrality(id string, degrees map[string]int, maxDegree int) float64 {
	if maxDegree == 0 {
		return 0
	}
	return clamp01(float64(degrees[id]) / float64(maxDegree))
}

func splitWords(content string) []string {
	return strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
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
