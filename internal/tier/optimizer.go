// Package tier assigns units to storage tiers and consolidates low-value
// units into batches. Tier placement is a function of combined score:
// a configured blend of importance and access frequency. Optimization is
// idempotent; running it twice on a quiet store changes nothing the
// second time.
package tier

import (
	"sort"
	"time"

	"mnemo/internal/config"
	"mnemo/internal/importance"
	"mnemo/internal/logging"
	"mnemo/internal/predictor"
	"mnemo/internal/store"
	"mnemo/internal/types"
)

// Optimizer performs tier assignment and consolidation passes.
type Optimizer struct {
	cfg       config.TierConfig
	store     *store.FileStore
	model     *importance.Model
	predictor *predictor.Predictor
	now       func() time.Time
}

// New creates an optimizer over a loaded store.
func New(cfg config.TierConfig, st *store.FileStore, model *importance.Model, pred *predictor.Predictor) *Optimizer {
	return &Optimizer{cfg: cfg, store: st, model: model, predictor: pred, now: time.Now}
}

// SetConfig swaps thresholds, for config hot-reload.
func (o *Optimizer) SetConfig(cfg config.TierConfig) { o.cfg = cfg }

// Report summarizes one optimization pass.
type Report struct {
	Processed    int
	Moved        int
	Consolidated int
	BytesSaved   int64
	Duration     time.Duration
	Errors       []error
}

// AssignTier maps a combined score to a tier.
func (o *Optimizer) AssignTier(combined float64) types.Tier {
	switch {
	case combined >= o.cfg.HotThreshold:
		return types.TierHot
	case combined >= o.cfg.WarmThreshold:
		return types.TierWarm
	case combined >= o.cfg.ColdThreshold:
		return types.TierCold
	default:
		return types.TierArchive
	}
}

// CombinedScore blends importance and predicted access frequency.
func (o *Optimizer) CombinedScore(imp, freq float64) float64 {
	return o.cfg.ImportanceShare*imp + o.cfg.FrequencyShare*freq
}

// OptimizeStorage runs one full pass: rescore every unit, move units whose
// tier no longer matches their combined score, then consolidate groups of
// low-value archive units. Per-unit failures are collected, not fatal.
func (o *Optimizer) OptimizeStorage() *Report {
	start := o.now()
	unlock := o.store.MaintenanceLock()
	defer unlock()

	timer := logging.StartTimer(logging.CategoryTier, "OptimizeStorage")
	defer timer.Stop()

	units := o.store.Snapshot()
	degrees, maxDegree := o.store.Degrees()
	ictx := o.scoringContext(units, degrees, maxDegree, start)

	report := &Report{Processed: len(units)}
	combined := make(map[string]float64, len(units))
	for _, u := range units {
		imp := o.model.Score(u, ictx)
		freq := o.predictor.PredictFrequency(u, nil)
		score := o.CombinedScore(imp, freq)
		combined[u.ContentID] = score

		want := o.AssignTier(score)
		if want == u.Tier() {
			continue
		}
		if err := o.store.MoveTier(u.ContentID, want); err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Moved++
		logging.TierDebug("Moved %s %s -> %s (combined %.3f)", shortID(u.ContentID), u.Tier(), want, score)
	}

	o.consolidate(combined, report)

	report.Duration = o.now().Sub(start)
	if err := o.store.MarkOptimized(start); err != nil {
		report.Errors = append(report.Errors, err)
	}
	logging.Tier("Optimize pass: %d processed, %d moved, %d consolidated, %d bytes saved, %d errors",
		report.Processed, report.Moved, report.Consolidated, report.BytesSaved, len(report.Errors))
	return report
}

// consolidate merges low-value archive units into batches. Units already
// inside a batch are skipped so repeated passes do not re-batch.
func (o *Optimizer) consolidate(combined map[string]float64, report *Report) {
	already, err := o.store.ConsolidatedIDs(types.TierArchive)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return
	}

	var candidates []string
	for _, u := range o.store.Snapshot() {
		if u.Tier() != types.TierArchive {
			continue
		}
		if already[u.ContentID] {
			continue
		}
		if combined[u.ContentID] >= o.cfg.ConsolidateBelow {
			continue
		}
		candidates = append(candidates, u.ContentID)
	}
	if len(candidates) < o.cfg.MinBatch {
		return
	}
	sort.Strings(candidates)

	res, err := o.store.ConsolidateUnits(types.TierArchive, candidates)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return
	}
	report.Consolidated = res.Members
	report.BytesSaved = res.BytesSaved
}

// scoringContext builds the shared snapshot every unit in a pass is
// scored against. The uniqueness window bound comes from the model's
// configuration.
func (o *Optimizer) scoringContext(units []*types.Unit, degrees map[string]int, maxDegree int, now time.Time) *importance.Context {
	ictx := &importance.Context{
		Now:       now,
		Degrees:   degrees,
		MaxDegree: maxDegree,
	}
	if len(units) > 0 {
		ictx.RecentUnits = recentWindow(units, o.model.UniquenessWindow())
	}
	return ictx
}

// recentWindow picks the newest n units by timestamp for the uniqueness
// factor.
func recentWindow(units []*types.Unit, n int) []*types.Unit {
	sorted := make([]*types.Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
