// Package store implements the durable, content-addressed unit store: one
// json record per unit under units/<tier>/, write-through ingest with
// atomic file replacement, consolidated batch records for cold data, and
// the relationship graph file.
package store

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	"mnemo/internal/affect"
	"mnemo/internal/config"
	"mnemo/internal/embedding"
	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// Sentinel errors.
var (
	ErrEmptyContent = errors.New("store: content is empty")
	ErrNotFound     = errors.New("store: unit not found")
)

// unitLockStripes bounds the per-unit mutation locks. Two units sharing a
// stripe serialize against each other, which is correct, just coarser.
const unitLockStripes = 64

// FileStore is the persistence layer. All reads go through an in-memory
// index kept consistent with disk; every mutation is written through
// synchronously before it is visible.
type FileStore struct {
	root          string
	dimension     int
	defaultDecay  float64
	linkThreshold float64

	embedder  embedding.Engine
	extractor affect.Extractor

	mu    sync.RWMutex
	units map[string]*types.Unit
	graph map[string][]Edge
	meta  Meta

	unitLocks [unitLockStripes]sync.Mutex

	// maintenanceMu serializes optimize/consolidate passes against each
	// other; they additionally take mu for index mutations.
	maintenanceMu sync.Mutex
}

// New creates a FileStore rooted at cfg.Root and ensures the directory
// layout exists. Call Load afterwards to pull existing units off disk.
func New(cfg config.StoreConfig, embedder embedding.Engine, extractor affect.Extractor) (*FileStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "New")
	defer timer.Stop()

	if cfg.Root == "" {
		return nil, fmt.Errorf("store root is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("store dimension must be positive, got %d", cfg.Dimension)
	}
	if embedder != nil && embedder.Dimensions() != cfg.Dimension {
		return nil, fmt.Errorf("embedder produces %d dims, store configured for %d", embedder.Dimensions(), cfg.Dimension)
	}

	logging.Store("Initializing file store at %s (dimension=%d)", cfg.Root, cfg.Dimension)

	s := &FileStore{
		root:          cfg.Root,
		dimension:     cfg.Dimension,
		defaultDecay:  cfg.DefaultDecayRate,
		linkThreshold: cfg.GraphLinkThreshold,
		embedder:      embedder,
		extractor:     extractor,
		units:         make(map[string]*types.Unit),
		graph:         make(map[string][]Edge),
	}
	if s.defaultDecay <= 0 {
		s.defaultDecay = 1.0
	}
	if s.linkThreshold <= 0 {
		s.linkThreshold = 0.75
	}

	for _, tier := range types.Tiers() {
		if err := os.MkdirAll(s.tierDir(tier), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create tier directory %s: %w", tier, err)
		}
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *FileStore) Root() string { return s.root }

// Dimension returns the configured vector length.
func (s *FileStore) Dimension() int { return s.dimension }

func (s *FileStore) tierDir(tier types.Tier) string {
	return filepath.Join(s.root, "units", string(tier))
}

func (s *FileStore) unitPath(tier types.Tier, id string) string {
	return filepath.Join(s.tierDir(tier), id+".json")
}

func (s *FileStore) graphPath() string { return filepath.Join(s.root, "graph.json") }
func (s *FileStore) metaPath() string  { return filepath.Join(s.root, "meta.json") }

// Get returns a clone of the unit, or ErrNotFound.
func (s *FileStore) Get(id string) (*types.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return u.Clone(), nil
}

// Has reports whether a unit exists.
func (s *FileStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.units[id]
	return ok
}

// Len returns the number of loaded units.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}

// Snapshot returns a copy-on-write view of every unit. Maintenance and
// retrieval iterate snapshots so concurrent ingests never tear a scan.
func (s *FileStore) Snapshot() []*types.Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u.Clone())
	}
	return out
}

// stripeFor maps a unit id onto its mutation lock.
func (s *FileStore) stripeFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.unitLocks[h.Sum32()%unitLockStripes]
}

// atomicWriteJSON serializes v and replaces path atomically: temp file in
// the same directory, fsync, rename, directory fsync. A crash mid-write
// never leaves a partial record visible.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after successful rename.

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	return syncDir(dir)
}

// syncDir fsyncs a directory so a rename survives power loss.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory for sync: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to fsync directory: %w", err)
	}
	return nil
}

// hrrSeed derives a stable projection seed from a content id, keeping the
// HRR shape a pure function of content.
func hrrSeed(contentID string) int64 {
	raw, err := hex.DecodeString(contentID)
	if err != nil || len(raw) < 8 {
		h := fnv.New64a()
		h.Write([]byte(contentID))
		return int64(h.Sum64())
	}
	return int64(binary.BigEndian.Uint64(raw[:8]))
}
