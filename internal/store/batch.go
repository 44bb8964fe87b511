package store

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// batchFilePrefix marks consolidated batch files inside a tier directory.
const batchFilePrefix = "batch_"

// ConsolidatedBatch is an append-only merge of many low-value units into
// one file: a manifest of member ids plus the full original records.
// Consolidation is lossless; no field is discarded.
type ConsolidatedBatch struct {
	BatchID     string       `json:"batch_id"`
	CreatedAt   time.Time    `json:"created_at"`
	MemberIDs   []string     `json:"member_ids"`
	Units       []types.Unit `json:"units"`
	BytesBefore int64        `json:"bytes_before"`
}

// ConsolidateResult reports one batch merge.
type ConsolidateResult struct {
	BatchID    string
	Members    int
	BytesSaved int64
}

// ConsolidateUnits merges the given units of one tier into a single batch
// file. Crash-safe ordering: the batch is written and fsynced before any
// original file is deleted, so a crash in between leaves both - load
// resolves that by preferring the individual files.
func (s *FileStore) ConsolidateUnits(tier types.Tier, ids []string) (*ConsolidateResult, error) {
	timer := logging.StartTimer(logging.CategoryTier, "ConsolidateUnits")
	defer timer.Stop()

	if len(ids) == 0 {
		return nil, fmt.Errorf("no units to consolidate")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := &ConsolidatedBatch{
		BatchID:   ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))).String(),
		CreatedAt: time.Now().UTC(),
	}
	var memberBytes int64
	for _, id := range ids {
		u, ok := s.units[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if u.Tier() != tier {
			return nil, fmt.Errorf("unit %s is in tier %s, not %s", shortID(id), u.Tier(), tier)
		}
		if info, err := os.Stat(s.unitPath(tier, id)); err == nil {
			memberBytes += info.Size()
		}
		batch.MemberIDs = append(batch.MemberIDs, id)
		batch.Units = append(batch.Units, *u.Clone())
	}
	batch.BytesBefore = memberBytes

	batchPath := s.batchPath(tier, batch.BatchID)
	if err := atomicWriteJSON(batchPath, batch); err != nil {
		return nil, fmt.Errorf("failed to write batch: %w", err)
	}

	// Originals go only after the batch is durable.
	for _, id := range ids {
		if err := removeFile(s.unitPath(tier, id)); err != nil {
			logging.Get(logging.CategoryTier).Warn("Failed to remove consolidated member %s: %v", shortID(id), err)
		}
	}

	var batchSize int64
	if info, err := os.Stat(batchPath); err == nil {
		batchSize = info.Size()
	}
	saved := memberBytes - batchSize
	if saved < 0 {
		saved = 0
	}

	logging.Tier("Consolidated %d units into %s (tier=%s, saved=%d bytes)", len(ids), batch.BatchID, tier, saved)
	return &ConsolidateResult{BatchID: batch.BatchID, Members: len(ids), BytesSaved: saved}, nil
}

// ConsolidatedIDs returns the member ids of every batch in the given tier.
// The optimizer uses this to keep passes idempotent: batch-resident units
// are never re-consolidated.
func (s *FileStore) ConsolidatedIDs(tier types.Tier) (map[string]bool, error) {
	entries, err := os.ReadDir(s.tierDir(tier))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || len(name) <= len(batchFilePrefix) || name[:len(batchFilePrefix)] != batchFilePrefix {
			continue
		}
		batch, err := readBatch(s.tierDir(tier) + "/" + name)
		if err != nil {
			continue
		}
		for _, id := range batch.MemberIDs {
			out[id] = true
		}
	}
	return out, nil
}

// MoveTier relocates a unit's record to another tier directory: write the
// new file first, delete the old one after, update the index. A crash
// between the two writes leaves a duplicate, which load deduplicates by
// content id.
func (s *FileStore) MoveTier(id string, to types.Tier) error {
	stripe := s.stripeFor(id)
	stripe.Lock()
	defer stripe.Unlock()

	s.mu.RLock()
	u, ok := s.units[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	from := u.Tier()
	if from == to {
		return nil
	}

	updated := u.Clone()
	updated.Metadata.Set(types.MetaTier, string(to))
	if err := atomicWriteJSON(s.unitPath(to, id), updated); err != nil {
		return fmt.Errorf("failed to write unit into tier %s: %w", to, err)
	}
	if err := removeFile(s.unitPath(from, id)); err != nil {
		logging.Get(logging.CategoryTier).Warn("Failed to remove old record of %s from %s: %v", shortID(id), from, err)
	}

	s.mu.Lock()
	s.units[id] = updated
	s.mu.Unlock()
	logging.TierDebug("Moved unit %s: %s -> %s", shortID(id), from, to)
	return nil
}

// MaintenanceLock serializes maintenance passes. The returned func releases.
func (s *FileStore) MaintenanceLock() func() {
	s.maintenanceMu.Lock()
	return s.maintenanceMu.Unlock
}

func (s *FileStore) batchPath(tier types.Tier, batchID string) string {
	return s.tierDir(tier) + "/" + batchFilePrefix + batchID + ".json"
}

func readBatch(path string) (*ConsolidatedBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b ConsolidatedBatch
	if err := unmarshalStrict(data, &b); err != nil {
		return nil, err
	}
	if len(b.MemberIDs) != len(b.Units) {
		return nil, fmt.Errorf("batch manifest lists %d members but holds %d records", len(b.MemberIDs), len(b.Units))
	}
	return &b, nil
}
