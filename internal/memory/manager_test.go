package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mnemo/internal/config"
	"mnemo/internal/types"
)

func TestMain(m *testing.M) {
	// go.opencensus.io starts an unstoppable worker goroutine in its
	// package init (pulled in transitively); goleak's docs say to ignore it.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testConfig(root string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Store.Root = root
	cfg.Store.Dimension = 64
	cfg.Store.OptimizeEveryN = 0 // tests trigger optimization explicitly
	return cfg
}

func TestOpenIngestRetrieveCycle(t *testing.T) {
	m, err := Open(testConfig(t.TempDir()))
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	id, err := m.Ingest(ctx, "watching the tide come in at the harbor", types.NewMetadata("type", "episode"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Same content, same id, no duplicate.
	again, err := m.Ingest(ctx, "watching the tide come in at the harbor", nil)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	results, err := m.Retrieve(ctx, "tide harbor", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, id, results[0].UnitID)
	assert.Greater(t, results[0].Score, 0.0)

	stats, err := m.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUnits)
	assert.Equal(t, types.HealthHealthy, stats.Health)
	assert.Greater(t, stats.StorageBytes, int64(0))
}

func TestMemorySurvivesReopen(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	m, err := Open(testConfig(root))
	require.NoError(t, err)
	hikingID, err := m.Ingest(ctx, "I went hiking on the mountain trail at dawn", nil)
	require.NoError(t, err)
	_, err = m.Ingest(ctx, "The paint swatches were all shades of blue", nil)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	reborn, err := Open(testConfig(root))
	require.NoError(t, err)
	defer reborn.Close()
	assert.Equal(t, types.HealthHealthy, reborn.Health())

	results, err := reborn.Retrieve(ctx, "hiking mountain trail", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hikingID, results[0].UnitID, "semantically right unit must come back after restart")
}

func TestCooperativeOptimize(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Store.OptimizeEveryN = 5
	m, err := Open(cfg)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := m.Ingest(ctx, fmt.Sprintf("background observation number %d", i), nil)
		require.NoError(t, err)
	}
	// The fifth ingest triggered a pass; its mark is persisted meta.
	stats, err := m.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalUnits)
}

func TestOptimizeStorageViaFacade(t *testing.T) {
	m, err := Open(testConfig(t.TempDir()))
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := m.Ingest(ctx, fmt.Sprintf("facade optimization subject %d", i), nil)
		require.NoError(t, err)
	}

	report := m.OptimizeStorage()
	assert.Equal(t, 3, report.Processed)
	assert.Empty(t, report.Errors)

	// A second immediate pass is a no-op.
	second := m.OptimizeStorage()
	assert.Zero(t, second.Moved)
	assert.Zero(t, second.Consolidated)
}

func TestSessionTracking(t *testing.T) {
	root := t.TempDir()

	m, err := Open(testConfig(root))
	require.NoError(t, err)
	first := m.Session()
	require.NotNil(t, first)
	require.NoError(t, m.Close())

	m2, err := Open(testConfig(root))
	require.NoError(t, err)
	defer m2.Close()

	second := m2.Session()
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := m2.SessionHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)

	stats, err := m2.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SessionCount)
}

func TestRetrieveEmptyStoreNoError(t *testing.T) {
	m, err := Open(testConfig(t.TempDir()))
	require.NoError(t, err)
	defer m.Close()

	results, err := m.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
