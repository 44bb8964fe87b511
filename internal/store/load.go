package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// tierScan is the result of loading one tier directory.
type tierScan struct {
	tier    types.Tier
	units   map[string]*types.Unit
	batches []*ConsolidatedBatch
	// records counts unit records present on disk in this tier (individual
	// files plus batch members); failed counts the ones that were skipped.
	records int
	failed  int
}

// Load scans the durable store and reconstructs the unit map. Per-file
// corruption never aborts startup: bad files are skipped and logged, and
// the returned health status reports how much survived.
//
// Consolidation crash recovery: a batch written just before a crash may
// coexist with the original member files it was about to replace. The
// individual files are authoritative; batch copies are only used for
// members whose individual file is gone.
func (s *FileStore) Load() (types.HealthStatus, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "Load")
	defer timer.Stop()

	s.loadGraph()
	s.loadMeta()

	var (
		g     errgroup.Group
		scanM sync.Mutex
		scans []*tierScan
	)
	for _, tier := range types.Tiers() {
		tier := tier
		g.Go(func() error {
			scan, err := s.scanTier(tier)
			if err != nil {
				return err
			}
			scanM.Lock()
			scans = append(scans, scan)
			scanM.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.HealthCorrupted, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var records, failed int
	// Individual unit files first: they win over batch copies.
	for _, scan := range scans {
		records += scan.records
		failed += scan.failed
		for id, u := range scan.units {
			s.units[id] = u
		}
	}
	for _, scan := range scans {
		for _, batch := range scan.batches {
			for _, member := range batch.Units {
				if _, ok := s.units[member.ContentID]; ok {
					logging.Boot("Batch %s member %s also exists as individual file, preferring individual (interrupted consolidation)",
						batch.BatchID, shortID(member.ContentID))
					continue
				}
				u := member
				s.units[u.ContentID] = &u
			}
		}
	}

	loaded := len(s.units)
	health := types.HealthHealthy
	switch {
	case records == 0:
		health = types.HealthHealthy // Empty store is healthy.
	case loaded == 0:
		health = types.HealthCorrupted
	case failed > 0:
		health = types.HealthPartial
	}

	logging.Boot("Store loaded: %d/%d records, health=%s", loaded, records, health)
	return health, nil
}

// scanTier reads every record in one tier directory.
func (s *FileStore) scanTier(tier types.Tier) (*tierScan, error) {
	scan := &tierScan{tier: tier, units: make(map[string]*types.Unit)}

	entries, err := os.ReadDir(s.tierDir(tier))
	if err != nil {
		if os.IsNotExist(err) {
			return scan, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(s.tierDir(tier), name)

		if strings.HasPrefix(name, batchFilePrefix) {
			batch, err := readBatch(path)
			if err != nil {
				logging.Get(logging.CategoryBoot).Warn("Skipping corrupt batch %s: %v", name, err)
				continue
			}
			scan.records += len(batch.Units)
			valid := batch.Units[:0]
			for i := range batch.Units {
				if err := s.normalizeLoaded(&batch.Units[i], tier); err != nil {
					logging.Get(logging.CategoryBoot).Warn("Skipping batch member in %s: %v", name, err)
					scan.failed++
					continue
				}
				valid = append(valid, batch.Units[i])
			}
			batch.Units = valid
			scan.batches = append(scan.batches, batch)
			continue
		}

		scan.records++
		unit, err := readUnit(path)
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("Skipping corrupt unit file %s/%s: %v", tier, name, err)
			scan.failed++
			continue
		}
		if err := s.normalizeLoaded(unit, tier); err != nil {
			logging.Get(logging.CategoryBoot).Warn("Skipping invalid unit file %s/%s: %v", tier, name, err)
			scan.failed++
			continue
		}
		scan.units[unit.ContentID] = unit
	}
	return scan, nil
}

// normalizeLoaded validates a loaded record and reconciles its tier
// metadata with the directory it was found in. Disk location wins.
func (s *FileStore) normalizeLoaded(u *types.Unit, tier types.Tier) error {
	if u.Metadata == nil {
		u.Metadata = types.NewMetadata()
	}
	u.Metadata.Set(types.MetaTier, string(tier))
	if u.LastAccess.Before(u.Timestamp) {
		u.LastAccess = u.Timestamp
	}
	return u.Validate(s.dimension)
}

func readUnit(path string) (*types.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var u types.Unit
	if err := unmarshalStrict(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// unmarshalStrict decodes JSON rejecting unknown fields, so a truncated or
// foreign file fails loudly instead of producing a half-empty record.
func unmarshalStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
