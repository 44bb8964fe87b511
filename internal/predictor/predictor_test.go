package predictor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemo/internal/config"
	"mnemo/internal/types"
)

func testPredictor(capacity int) *Predictor {
	return New(config.PredictorConfig{
		BufferCapacity:   capacity,
		TemporalHalfLife: 12 * time.Hour,
	})
}

func unitWithContent(content string) *types.Unit {
	return &types.Unit{
		ContentID: types.ContentID(content),
		Content:   content,
	}
}

func TestEmptyHistoryPredictsZero(t *testing.T) {
	p := testPredictor(10)
	u := unitWithContent("never accessed")
	assert.Equal(t, 0.0, p.PredictFrequency(u, nil))
}

func TestRingBufferEvictsOldest(t *testing.T) {
	p := testPredictor(5)
	for i := 0; i < 12; i++ {
		p.RecordAccess(fmt.Sprintf("unit-%d", i), "retrieval", nil, 0)
	}
	require.Equal(t, 5, p.HistoryLen(), "history must stay bounded")

	// The first accesses rolled off; only the newest five remain.
	evicted := unitWithContent("whatever")
	evicted.ContentID = "unit-0"
	assert.Equal(t, 0.0, p.PredictFrequency(evicted, nil))

	kept := unitWithContent("whatever")
	kept.ContentID = "unit-11"
	assert.Greater(t, p.PredictFrequency(kept, nil), 0.0)
}

func TestBaseFrequency(t *testing.T) {
	p := testPredictor(10)
	hot := unitWithContent("the popular one")
	cold := unitWithContent("the ignored one")

	for i := 0; i < 4; i++ {
		p.RecordAccess(hot.ContentID, "retrieval", nil, 0)
	}
	p.RecordAccess(cold.ContentID, "retrieval", nil, 0)

	assert.Greater(t, p.PredictFrequency(hot, nil), p.PredictFrequency(cold, nil))
}

func TestContextOverlapBoost(t *testing.T) {
	p := testPredictor(10)
	u := unitWithContent("a contextual memory")
	p.RecordAccess(u.ContentID, "retrieval", []string{"a", "b", "c"}, 0)

	matching := p.PredictFrequency(u, []string{"a", "b", "c"})
	disjoint := p.PredictFrequency(u, []string{"x", "y", "z"})
	assert.Greater(t, matching, disjoint, "overlapping access context must boost the prediction")
}

func TestTemporalRecencyBoost(t *testing.T) {
	p := testPredictor(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recent := unitWithContent("accessed just now")
	stale := unitWithContent("accessed yesterday")

	p.now = func() time.Time { return base.Add(-24 * time.Hour) }
	p.RecordAccess(stale.ContentID, "retrieval", nil, 0)
	p.now = func() time.Time { return base }
	p.RecordAccess(recent.ContentID, "retrieval", nil, 0)

	assert.Greater(t, p.PredictFrequency(recent, nil), p.PredictFrequency(stale, nil))
}

func TestEngagementWeightsTemporalBoost(t *testing.T) {
	p := testPredictor(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	engaged := unitWithContent("read closely and acted on")
	skimmed := unitWithContent("glanced at once")

	p.RecordAccess(engaged.ContentID, "retrieval", nil, 1)
	p.RecordAccess(skimmed.ContentID, "retrieval", nil, 0)

	high := p.PredictFrequency(engaged, nil)
	low := p.PredictFrequency(skimmed, nil)
	assert.Greater(t, high, low, "an engaged access must outweigh a skimmed one")

	// Same access times, so the whole gap is the engagement weight on
	// the temporal component: 0.25 * (1.0 - 0.5).
	assert.InDelta(t, 0.25*0.5, high-low, 1e-9)
}

func TestInterrogativeBoost(t *testing.T) {
	p := testPredictor(10)
	question := unitWithContent("why does the cache miss rate spike at noon?")
	statement := unitWithContent("the cache miss rate spikes at noon.")

	p.RecordAccess(question.ContentID, "retrieval", nil, 0)
	p.RecordAccess(statement.ContentID, "retrieval", nil, 0)

	assert.Greater(t, p.PredictFrequency(question, nil), p.PredictFrequency(statement, nil))
}

func TestPredictionStaysInRange(t *testing.T) {
	p := testPredictor(4)
	u := unitWithContent("what is the maximum possible score?")
	for i := 0; i < 4; i++ {
		p.RecordAccess(u.ContentID, "retrieval", []string{"ctx"}, 1)
	}
	score := p.PredictFrequency(u, []string{"ctx"})
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}
