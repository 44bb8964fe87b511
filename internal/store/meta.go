package store

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// Meta is the store-level metadata file.
type Meta struct {
	CreatedAt    time.Time `json:"created_at"`
	SessionCount int       `json:"session_count"`
	LastOptimize time.Time `json:"last_optimize,omitempty"`
}

// loadMeta reads meta.json, creating it on first run.
func (s *FileStore) loadMeta() {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			s.meta = Meta{CreatedAt: time.Now().UTC()}
			if err := atomicWriteJSON(s.metaPath(), s.meta); err != nil {
				logging.Get(logging.CategoryBoot).Warn("Failed to create meta file: %v", err)
			}
			return
		}
		logging.Get(logging.CategoryBoot).Warn("Failed to read meta file: %v", err)
		s.meta = Meta{CreatedAt: time.Now().UTC()}
		return
	}
	var m Meta
	if err := unmarshalStrict(data, &m); err != nil {
		logging.Get(logging.CategoryBoot).Warn("Corrupt meta file, resetting: %v", err)
		s.meta = Meta{CreatedAt: time.Now().UTC()}
		return
	}
	s.meta = m
}

// Meta returns a copy of the store metadata.
func (s *FileStore) MetaInfo() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// BumpSessionCount increments the persisted session counter.
func (s *FileStore) BumpSessionCount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.SessionCount++
	return atomicWriteJSON(s.metaPath(), s.meta)
}

// MarkOptimized records the completion time of a maintenance pass.
func (s *FileStore) MarkOptimized(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.LastOptimize = at.UTC()
	return atomicWriteJSON(s.metaPath(), s.meta)
}

// Stats summarizes the durable store.
type Stats struct {
	TotalUnits       int                `json:"total_units"`
	StorageBytes     int64              `json:"storage_bytes"`
	TierDistribution map[types.Tier]int `json:"tier_distribution"`
	Health           types.HealthStatus `json:"health"`
}

// ComputeStats walks the store and reports totals. Health is whatever the
// last Load observed, passed in by the caller that owns it.
func (s *FileStore) ComputeStats(health types.HealthStatus) (*Stats, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ComputeStats")
	defer timer.Stop()

	stats := &Stats{
		TierDistribution: make(map[types.Tier]int),
		Health:           health,
	}

	s.mu.RLock()
	stats.TotalUnits = len(s.units)
	for _, u := range s.units {
		stats.TierDistribution[u.Tier()]++
	}
	s.mu.RUnlock()

	for _, tier := range types.Tiers() {
		entries, err := os.ReadDir(s.tierDir(tier))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if info, err := entry.Info(); err == nil {
				stats.StorageBytes += info.Size()
			}
		}
	}
	for _, name := range []string{"graph.json", "meta.json", "session.json", "sessions.log"} {
		if info, err := os.Stat(filepath.Join(s.root, name)); err == nil {
			stats.StorageBytes += info.Size()
		}
	}
	return stats, nil
}
