package scheduler

import (
	"fmt"
	"time"
)

// QueueTier is a coarse scheduling class selected by wall time.
type QueueTier string

const (
	TierShort  QueueTier = "short"
	TierMedium QueueTier = "medium"
	TierLong   QueueTier = "long"
)

// Tier boundaries, inclusive.
const (
	ShortLimit  = 3 * time.Hour
	MediumLimit = 24 * time.Hour
)

// ClassifyDuration maps a wall time to its queue tier.
func ClassifyDuration(walltime time.Duration) QueueTier {
	switch {
	case walltime <= ShortLimit:
		return TierShort
	case walltime <= MediumLimit:
		return TierMedium
	default:
		return TierLong
	}
}

// Classify parses an HH:MM:SS wall time and returns its tier.
func Classify(walltime string) (QueueTier, error) {
	d, err := ParseWalltime(walltime)
	if err != nil {
		return "", err
	}
	return ClassifyDuration(d), nil
}

// QueueNames maps tiers to Grid Engine queue names.
type QueueNames map[QueueTier]string

// DefaultQueueNames follows the cluster's <tier>.q convention.
func DefaultQueueNames() QueueNames {
	return QueueNames{
		TierShort:  "short.q",
		TierMedium: "medium.q",
		TierLong:   "long.q",
	}
}

// For returns the queue name for tier. An empty name means no queue selector is written.
func (q QueueNames) For(tier QueueTier) string {
	return q[tier]
}

// ParseQueueTier converts a tier name to a QueueTier.
func ParseQueueTier(s string) (QueueTier, error) {
	switch t := QueueTier(s); t {
	case TierShort, TierMedium, TierLong:
		return t, nil
	}
	return "", fmt.Errorf("unknown queue tier %q (expected short, medium, or long)", s)
}
