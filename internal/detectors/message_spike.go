package detectors

import (
	"go-guildwatch/internal/baseline"
	"go-guildwatch/internal/models"
)

// MessageSpikeCheck compares the current measurement-window message count
// against the baseline estimate for the same wall-clock bucket. A nil
// estimate (cold start) abstains. Severity escalates to high when the count
// exceeds highMultiplier times the baseline mean.
func MessageSpikeCheck(count float64, est *baseline.Estimate, highMultiplier float64) (bool, models.Severity) {
	if est == nil {
		return false, models.SeverityLow
	}
	if count <= est.Max {
		return false, models.SeverityLow
	}
	if highMultiplier >= 1 && count > highMultiplier*est.Mean {
		return true, models.SeverityHigh
	}
	return true, models.SeverityMedium
}
