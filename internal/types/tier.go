package types

import "fmt"

// Tier is a storage category reflecting expected future access likelihood.
type Tier string

const (
	TierHot     Tier = "hot"
	TierWarm    Tier = "warm"
	TierCold    Tier = "cold"
	TierArchive Tier = "archive"
)

// Tiers lists all tiers from most to least accessible. Directory scans and
// stats reports iterate in this order.
func Tiers() []Tier {
	return []Tier{TierHot, TierWarm, TierCold, TierArchive}
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierHot, TierWarm, TierCold, TierArchive:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown storage tier %q", s)
}

// HealthStatus summarizes how much of the durable store survived a load.
type HealthStatus string

const (
	// HealthHealthy: every unit file on disk was loaded.
	HealthHealthy HealthStatus = "healthy"
	// HealthPartial: some unit files were skipped (corrupt or invalid).
	HealthPartial HealthStatus = "partial"
	// HealthCorrupted: files were present but none could be loaded.
	HealthCorrupted HealthStatus = "corrupted"
)
