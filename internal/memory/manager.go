// Package memory is the assembled system: it wires the store, importance
// model, predictor, tier optimizer, retrieval engine, and session manager
// behind one facade. Callers construct a Manager per store root; there
// are no package-level singletons.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mnemo/internal/affect"
	"mnemo/internal/config"
	"mnemo/internal/embedding"
	"mnemo/internal/importance"
	"mnemo/internal/logging"
	"mnemo/internal/predictor"
	"mnemo/internal/retrieval"
	"mnemo/internal/session"
	"mnemo/internal/store"
	"mnemo/internal/tier"
	"mnemo/internal/types"
)

// Result is one retrieval hit exposed by the facade.
type Result struct {
	UnitID  string
	Content string
	Score   float64
}

// Stats is the external stats surface.
type Stats struct {
	TotalUnits       int
	StorageBytes     int64
	TierDistribution map[types.Tier]int
	Health           types.HealthStatus
	SessionCount     int
}

// Manager is the core API facade.
type Manager struct {
	cfg       *config.Config
	store     *store.FileStore
	model     *importance.Model
	predictor *predictor.Predictor
	optimizer *tier.Optimizer
	engine    *retrieval.Engine
	sessions  *session.Manager

	health types.HealthStatus

	mu              sync.Mutex
	ingestsSinceOpt int
}

// Open builds the full system for one store root: initializes category
// logging, constructs the collaborators from configuration, loads the
// store off disk, and begins a session. The returned health reflects the
// load; a PARTIAL store still opens.
func Open(cfg *config.Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("memory: config: %w", err)
	}
	if err := logging.Initialize(cfg.Store.Root); err != nil {
		return nil, fmt.Errorf("memory: logging: %w", err)
	}

	embedder, err := embedding.NewEngine(cfg.Embedding, cfg.Store.Dimension)
	if err != nil {
		return nil, fmt.Errorf("memory: embedder: %w", err)
	}
	extractor := affect.NewLexiconExtractor()

	st, err := store.New(cfg.Store, embedder, extractor)
	if err != nil {
		return nil, fmt.Errorf("memory: store: %w", err)
	}
	health, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("memory: load: %w", err)
	}

	pred := predictor.New(cfg.Predictor)
	model := importance.New(cfg.Importance, pred)
	opt := tier.New(cfg.Tier, st, model, pred)
	engine := retrieval.New(cfg.Retrieval, st, embedder, extractor, model, pred)
	sessions := session.New(cfg.Store.Root, st)

	m := &Manager{
		cfg:       cfg,
		store:     st,
		model:     model,
		predictor: pred,
		optimizer: opt,
		engine:    engine,
		sessions:  sessions,
		health:    health,
	}
	if _, err := sessions.Begin(); err != nil {
		logging.Boot("Session begin failed: %v", err)
	}
	logging.Boot("Store open at %s: %d units, health %s", cfg.Store.Root, st.Len(), health)
	return m, nil
}

// Ingest stores content and returns its unit id. Identical content is an
// idempotent no-op returning the existing id. Every OptimizeEveryN
// ingests a cooperative optimization pass runs inline.
func (m *Manager) Ingest(ctx context.Context, content string, metadata *types.Metadata) (string, error) {
	unit, err := m.store.Ingest(ctx, content, metadata)
	if err != nil {
		return "", err
	}
	if err := m.sessions.Heartbeat(1, 0); err != nil {
		logging.MemoryDebug("Heartbeat failed: %v", err)
	}
	m.maybeOptimize()
	return unit.ContentID, nil
}

// Retrieve ranks stored units against the query and returns at most k.
func (m *Manager) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	scored, err := m.engine.RetrieveSimilar(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if err := m.sessions.Heartbeat(0, 1); err != nil {
		logging.MemoryDebug("Heartbeat failed: %v", err)
	}
	results := make([]Result, len(scored))
	for i, s := range scored {
		results[i] = Result{UnitID: s.Unit.ContentID, Content: s.Unit.Content, Score: s.Score}
	}
	return results, nil
}

// Get returns one unit by id.
func (m *Manager) Get(id string) (*types.Unit, error) { return m.store.Get(id) }

// GetStats reports store-level statistics.
func (m *Manager) GetStats() (*Stats, error) {
	raw, err := m.store.ComputeStats(m.health)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalUnits:       raw.TotalUnits,
		StorageBytes:     raw.StorageBytes,
		TierDistribution: raw.TierDistribution,
		Health:           raw.Health,
		SessionCount:     m.store.MetaInfo().SessionCount,
	}, nil
}

// OptimizeStorage runs a full maintenance pass now.
func (m *Manager) OptimizeStorage() *tier.Report {
	report := m.optimizer.OptimizeStorage()
	m.mu.Lock()
	m.ingestsSinceOpt = 0
	m.mu.Unlock()
	return report
}

// Session returns the live session snapshot.
func (m *Manager) Session() *session.State { return m.sessions.Current() }

// SessionHistory returns past sessions, oldest first.
func (m *Manager) SessionHistory() ([]session.State, error) { return m.sessions.History() }

// Health returns the load health determined at Open.
func (m *Manager) Health() types.HealthStatus { return m.health }

// Reconfigure applies updated tunables from a reloaded config file.
// Structural settings (root, dimension) are ignored; they require a
// fresh Open.
func (m *Manager) Reconfigure(cfg *config.Config) {
	m.model.SetConfig(cfg.Importance)
	m.optimizer.SetConfig(cfg.Tier)
	m.engine.SetConfig(cfg.Retrieval)
	logging.Memory("Configuration reloaded")
}

// WatchConfig hot-reloads tunable settings while ctx is live. Weight and
// threshold edits to the config file take effect without a restart.
func (m *Manager) WatchConfig(ctx context.Context) (*config.Watcher, error) {
	w, err := config.NewWatcher(m.cfg.Store.Root, m.Reconfigure)
	if err != nil {
		return nil, fmt.Errorf("memory: config watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("memory: config watcher: %w", err)
	}
	return w, nil
}

// Close ends the session and releases log files.
func (m *Manager) Close() error {
	err := m.sessions.Close()
	logging.CloseAll()
	return err
}

// maybeOptimize triggers a cooperative pass every N ingests. It runs
// inline on the ingesting caller rather than from a background goroutine,
// so shutdown never races a maintenance pass.
func (m *Manager) maybeOptimize() {
	every := m.cfg.Store.OptimizeEveryN
	if every <= 0 {
		return
	}
	m.mu.Lock()
	m.ingestsSinceOpt++
	due := m.ingestsSinceOpt >= every
	if due {
		m.ingestsSinceOpt = 0
	}
	m.mu.Unlock()
	if !due {
		return
	}
	start := time.Now()
	report := m.optimizer.OptimizeStorage()
	logging.Memory("Cooperative optimize after %d ingests: moved %d, consolidated %d in %s",
		every, report.Moved, report.Consolidated, time.Since(start).Round(time.Millisecond))
}
