package tier

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemo/internal/affect"
	"mnemo/internal/config"
	"mnemo/internal/embedding"
	"mnemo/internal/importance"
	"mnemo/internal/predictor"
	"mnemo/internal/store"
	"mnemo/internal/types"
)

func testSystem(t *testing.T, root string) (*Optimizer, *store.FileStore) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Root = root
	cfg.Store.Dimension = 32

	embedder, err := embedding.NewEngine(config.EmbeddingConfig{Provider: "hash"}, 32)
	require.NoError(t, err)
	st, err := store.New(cfg.Store, embedder, affect.NewLexiconExtractor())
	require.NoError(t, err)
	_, err = st.Load()
	require.NoError(t, err)

	pred := predictor.New(cfg.Predictor)
	model := importance.New(cfg.Importance, pred)
	return New(cfg.Tier, st, model, pred), st
}

func TestAssignTierThresholds(t *testing.T) {
	opt, _ := testSystem(t, t.TempDir())

	tests := []struct {
		combined float64
		want     types.Tier
	}{
		{0.85, types.TierHot},
		{0.80, types.TierHot},
		{0.79, types.TierWarm},
		{0.55, types.TierWarm},
		{0.50, types.TierWarm},
		{0.49, types.TierCold},
		{0.20, types.TierCold},
		{0.19, types.TierArchive},
		{0.10, types.TierArchive},
		{0.0, types.TierArchive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, opt.AssignTier(tt.combined), "combined=%.2f", tt.combined)
	}
}

func TestCombinedScoreBlend(t *testing.T) {
	opt, _ := testSystem(t, t.TempDir())
	assert.InDelta(t, 0.7, opt.CombinedScore(1, 0), 1e-9)
	assert.InDelta(t, 0.3, opt.CombinedScore(0, 1), 1e-9)
	assert.InDelta(t, 1.0, opt.CombinedScore(1, 1), 1e-9)
}

func TestOptimizeStorageMovesStaleUnits(t *testing.T) {
	opt, st := testSystem(t, t.TempDir())
	u, err := st.Ingest(context.Background(), "a memory that will grow stale", nil)
	require.NoError(t, err)

	// Age the pass clock far past every half-life so the combined score
	// lands below the hot threshold.
	opt.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }

	report := opt.OptimizeStorage()
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Moved, "stale hot unit should move down")
	assert.Empty(t, report.Errors)

	got, err := st.Get(u.ContentID)
	require.NoError(t, err)
	assert.NotEqual(t, types.TierHot, got.Tier())
}

func TestOptimizeStorageIdempotent(t *testing.T) {
	opt, st := testSystem(t, t.TempDir())
	for i := 0; i < 3; i++ {
		_, err := st.Ingest(context.Background(), fmt.Sprintf("stable content number %d", i), nil)
		require.NoError(t, err)
	}

	fixed := time.Now().Add(90 * 24 * time.Hour)
	opt.now = func() time.Time { return fixed }

	first := opt.OptimizeStorage()
	second := opt.OptimizeStorage()

	assert.Zero(t, second.Moved, "second pass must move nothing (first moved %d)", first.Moved)
	assert.Zero(t, second.Consolidated, "second pass must consolidate nothing")
	assert.Empty(t, second.Errors)
}

func TestScoringContextHonorsUniquenessWindow(t *testing.T) {
	opt, st := testSystem(t, t.TempDir())
	for i := 0; i < 6; i++ {
		_, err := st.Ingest(context.Background(), fmt.Sprintf("windowed observation %d", i), nil)
		require.NoError(t, err)
	}

	cfg := config.DefaultConfig().Importance
	cfg.UniquenessWindow = 2
	opt.model.SetConfig(cfg)

	units := st.Snapshot()
	degrees, maxDegree := st.Degrees()
	ictx := opt.scoringContext(units, degrees, maxDegree, time.Now())
	require.Len(t, ictx.RecentUnits, 2, "window bound must come from configuration")

	// The window keeps the newest units.
	newest := ictx.RecentUnits[0].Timestamp
	for _, u := range units {
		assert.False(t, u.Timestamp.After(newest))
	}
}

func TestConsolidationRequiresMinimumBatch(t *testing.T) {
	opt, st := testSystem(t, t.TempDir())
	// Fewer archive units than MinBatch: nothing may be consolidated.
	for i := 0; i < 3; i++ {
		u, err := st.Ingest(context.Background(), fmt.Sprintf("tiny archived scrap %d", i), nil)
		require.NoError(t, err)
		require.NoError(t, st.MoveTier(u.ContentID, types.TierArchive))
	}

	opt.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	report := opt.OptimizeStorage()
	assert.Zero(t, report.Consolidated)
}

func TestConsolidationBatchesLowValueArchive(t *testing.T) {
	opt, st := testSystem(t, t.TempDir())
	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		u, err := st.Ingest(context.Background(), fmt.Sprintf("forgettable archived detail %d", i), nil)
		require.NoError(t, err)
		ids = append(ids, u.ContentID)
	}

	// Push everything deep into the past: combined scores sink under the
	// consolidation cutoff and tiers settle at archive.
	opt.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }

	first := opt.OptimizeStorage()
	require.Empty(t, first.Errors)

	// Moves and consolidation can land in the same pass; after the
	// second pass everything eligible is batched either way.
	second := opt.OptimizeStorage()
	require.Empty(t, second.Errors)
	total := first.Consolidated + second.Consolidated
	assert.GreaterOrEqual(t, total, 10, "low-value archive units should be batched")

	// Every unit remains retrievable after consolidation.
	for _, id := range ids {
		_, err := st.Get(id)
		assert.NoError(t, err, "unit %s lost by consolidation", id[:12])
	}

	third := opt.OptimizeStorage()
	assert.Zero(t, third.Consolidated, "already-batched units must not re-batch")
}
