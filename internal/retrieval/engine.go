// Package retrieval ranks stored units against a query. The base signal
// is cosine similarity of semantic vectors; importance and emotional
// congruence modulate it. A degenerate query vector drops the engine to a
// keyword-overlap fallback instead of returning noise.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"mnemo/internal/affect"
	"mnemo/internal/config"
	"mnemo/internal/embedding"
	"mnemo/internal/hrr"
	"mnemo/internal/importance"
	"mnemo/internal/logging"
	"mnemo/internal/predictor"
	"mnemo/internal/store"
	"mnemo/internal/types"
)

// ScoredUnit is one ranked result.
type ScoredUnit struct {
	Unit       *types.Unit
	Similarity float64 // raw cosine (or keyword overlap in fallback)
	Score      float64 // boosted ranking score
}

// Engine runs similarity retrieval over a loaded store.
type Engine struct {
	cfg       config.RetrievalConfig
	store     *store.FileStore
	embedder  embedding.Engine
	extractor affect.Extractor
	model     *importance.Model
	predictor *predictor.Predictor
	now       func() time.Time
}

// New creates a retrieval engine.
func New(cfg config.RetrievalConfig, st *store.FileStore, emb embedding.Engine, ext affect.Extractor, model *importance.Model, pred *predictor.Predictor) *Engine {
	return &Engine{cfg: cfg, store: st, embedder: emb, extractor: ext, model: model, predictor: pred, now: time.Now}
}

// SetConfig swaps boost parameters, for config hot-reload.
func (e *Engine) SetConfig(cfg config.RetrievalConfig) { e.cfg = cfg }

// RetrieveSimilar returns the top k units ranked against the query.
// An empty query or k <= 0 returns an empty slice. Retrieval touches
// each returned unit's last_access, records the accesses with the
// predictor, and links strongly similar result pairs in the graph.
func (e *Engine) RetrieveSimilar(ctx context.Context, query string, k int) ([]ScoredUnit, error) {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return []ScoredUnit{}, nil
	}
	timer := logging.StartTimer(logging.CategoryRetrieval, "RetrieveSimilar")
	defer timer.Stop()

	units := e.store.Snapshot()
	if len(units) == 0 {
		return []ScoredUnit{}, nil
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	normalized, degenerate := hrr.Normalize(queryVec)

	var results []ScoredUnit
	if degenerate {
		logging.Retrieval("Degenerate query vector, using keyword fallback for %q", truncate(query, 60))
		results = e.keywordRank(query, units)
	} else {
		results, err = e.vectorRank(normalized, query, units)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Unit.LastAccess.After(results[j].Unit.LastAccess)
	})
	if len(results) > k {
		results = results[:k]
	}

	e.recordAccesses(results)
	e.linkStrongPairs(results)

	logging.RetrievalDebug("Query %q -> %d results", truncate(query, 60), len(results))
	return results, nil
}

// vectorRank scores every unit by boosted cosine similarity.
func (e *Engine) vectorRank(queryVec []float32, query string, units []*types.Unit) ([]ScoredUnit, error) {
	queryEmotion := e.extractor.Extract(query)
	degrees, maxDegree := e.store.Degrees()
	ictx := &importance.Context{
		Now:       e.now(),
		Degrees:   degrees,
		MaxDegree: maxDegree,
	}

	results := make([]ScoredUnit, 0, len(units))
	for _, u := range units {
		sim, err := hrr.Cosine(queryVec, u.SemanticVector)
		if err != nil {
			return nil, err
		}
		if sim <= 0 {
			continue
		}
		imp := e.model.Score(u, ictx)
		score := sim * (1 + e.cfg.ImportanceBoost*imp) * e.emotionMultiplier(queryEmotion, u.EmotionVector)
		results = append(results, ScoredUnit{Unit: u, Similarity: sim, Score: score})
	}
	return results, nil
}

// emotionMultiplier maps PAD cosine in [-1,1] onto [1, MaxEmotionBoost]:
// emotionally opposite content is never penalized below neutral, only
// congruent content is lifted.
func (e *Engine) emotionMultiplier(query, unit types.PAD) float64 {
	maxBoost := e.cfg.MaxEmotionBoost
	if maxBoost <= 1 {
		return 1
	}
	sim, err := hrr.CosineFloat64(query.Components(), unit.Components())
	if err != nil {
		return 1
	}
	return 1 + (sim+1)/2*(maxBoost-1)
}

// keywordRank is the fallback for degenerate query vectors: score by word
// overlap between query and content.
func (e *Engine) keywordRank(query string, units []*types.Unit) []ScoredUnit {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return []ScoredUnit{}
	}
	var results []ScoredUnit
	for _, u := range units {
		overlap := jaccard(queryWords, wordSet(u.Content))
		if overlap <= 0 {
			continue
		}
		results = append(results, ScoredUnit{Unit: u, Similarity: overlap, Score: overlap})
	}
	return results
}

// recordAccesses touches the returned units and feeds the predictor. The
// access context of each result is the other results it appeared with.
func (e *Engine) recordAccesses(results []ScoredUnit) {
	if len(results) == 0 {
		return
	}
	now := e.now()
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Unit.ContentID
	}
	for i, r := range results {
		contextIDs := make([]string, 0, len(ids)-1)
		contextIDs = append(contextIDs, ids[:i]...)
		contextIDs = append(contextIDs, ids[i+1:]...)
		e.predictor.RecordAccess(r.Unit.ContentID, "retrieval", contextIDs, r.Score)
		if err := e.store.Touch(r.Unit.ContentID, now); err != nil {
			logging.Retrieval("Touch failed for %s: %v", r.Unit.ContentID, err)
		}
	}
}

// linkStrongPairs records graph edges between result pairs whose mutual
// similarity clears the store's link threshold.
func (e *Engine) linkStrongPairs(results []ScoredUnit) {
	threshold := e.store.LinkThreshold()
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			sim, err := hrr.Cosine(results[i].Unit.SemanticVector, results[j].Unit.SemanticVector)
			if err != nil || sim < threshold {
				continue
			}
			if err := e.store.Link(results[i].Unit.ContentID, results[j].Unit.ContentID, sim); err != nil {
				logging.Retrieval("Link failed: %v", err)
			}
		}
	}
}

func wordSet(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var inter int
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
