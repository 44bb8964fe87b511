package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mnemo/internal/hrr"
	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// defaultIntrinsicImportance is the baseline for units whose metadata does
// not carry an explicit importance hint.
const defaultIntrinsicImportance = 0.5

// Ingest creates and durably persists a unit for content. Duplicate
// content is an idempotent no-op returning the existing unit. The write is
// synchronous: on return the record is on disk, or the error says it is
// not and the unit does not exist.
func (s *FileStore) Ingest(ctx context.Context, content string, metadata *types.Metadata) (*types.Unit, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Ingest")
	defer timer.Stop()

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	id := types.ContentID(content)

	s.mu.RLock()
	existing, ok := s.units[id]
	s.mu.RUnlock()
	if ok {
		logging.StoreDebug("Ingest dedup hit: %s", shortID(id))
		return existing.Clone(), nil
	}

	if s.embedder == nil {
		return nil, fmt.Errorf("store has no embedding engine configured")
	}
	semantic, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(semantic) != s.dimension {
		return nil, fmt.Errorf("embedder returned %d dims, store configured for %d", len(semantic), s.dimension)
	}

	var emotion types.PAD
	if s.extractor != nil {
		emotion = s.extractor.Extract(content)
	}

	if metadata == nil {
		metadata = types.NewMetadata()
	} else {
		metadata = metadata.Clone()
	}
	metadata.Set(types.MetaTier, string(types.TierHot))

	now := time.Now().UTC()
	shape := hrr.Project(semantic, hrrSeed(id))
	logging.BinderDebug("Derived hrr shape for %s (dim=%d)", shortID(id), len(shape))

	unit := &types.Unit{
		ContentID:      id,
		Content:        content,
		SemanticVector: semantic,
		HRRShape:       shape,
		EmotionVector:  emotion,
		Timestamp:      now,
		LastAccess:     now,
		DecayRate:      s.defaultDecay,
		Importance:     defaultIntrinsicImportance,
		Metadata:       metadata,
	}
	if err := unit.Validate(s.dimension); err != nil {
		return nil, fmt.Errorf("refusing to persist invalid unit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock: a concurrent ingest of identical
	// content may have won the race.
	if existing, ok := s.units[id]; ok {
		return existing.Clone(), nil
	}

	if err := atomicWriteJSON(s.unitPath(types.TierHot, id), unit); err != nil {
		logging.Get(logging.CategoryStore).Error("Durable write failed for %s: %v", shortID(id), err)
		return nil, fmt.Errorf("durable write failed: %w", err)
	}
	if err := s.saveGraphLocked(); err != nil {
		// The unit file exists but the store contract is write-through:
		// roll the record back so a failed ingest leaves nothing behind.
		_ = removeFile(s.unitPath(types.TierHot, id))
		logging.Get(logging.CategoryStore).Error("Graph write failed during ingest of %s: %v", shortID(id), err)
		return nil, fmt.Errorf("graph write failed: %w", err)
	}

	s.units[id] = unit
	logging.Store("Ingested unit %s (%d bytes, tier=hot)", shortID(id), len(content))
	return unit.Clone(), nil
}

// Touch updates a unit's last-access time and rewrites its record. Per-unit
// serialization comes from lock striping; the file replace is atomic.
func (s *FileStore) Touch(id string, at time.Time) error {
	stripe := s.stripeFor(id)
	stripe.Lock()
	defer stripe.Unlock()

	s.mu.RLock()
	u, ok := s.units[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	at = at.UTC()
	if at.Before(u.LastAccess) {
		return nil // Never move last_access backwards.
	}

	updated := u.Clone()
	updated.LastAccess = at
	if err := atomicWriteJSON(s.unitPath(updated.Tier(), id), updated); err != nil {
		return fmt.Errorf("failed to persist access update: %w", err)
	}

	s.mu.Lock()
	s.units[id] = updated
	s.mu.Unlock()
	logging.StoreDebug("Touched unit %s at %s", shortID(id), at.Format(time.RFC3339))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
