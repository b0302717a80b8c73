package detectors

import (
	"go-guildwatch/internal/models"
	"go-guildwatch/pkg/util"
)

const (
	dayMs  = 24 * 60 * 60 * 1000
	weekMs = 7 * dayMs
)

// Factor weights for the rapid-join scorer. Each factor saturates at 1.0
// before weighting, so no single factor can push the total above its weight.
// The weights sum to 1.0; there is no headroom on this scorer.
const (
	weightYoungWeek    = 0.3
	weightYoungDay     = 0.2
	weightNoAvatar     = 0.2
	weightSimilarNames = 0.2
	weightJoinTiming   = 0.1
)

// RapidJoinScore rates a window of join events for raid likelihood.
// All ratios divide by the window's own entry count, so the scorer stays
// valid regardless of guild size.
func RapidJoinScore(entries []models.Event) float64 {
	n := len(entries)
	if n == 0 {
		return 0
	}

	youngWeek, youngDay, noAvatar := 0, 0, 0
	names := make([]string, 0, n)
	timestamps := make([]int64, 0, n)

	for _, e := range entries {
		if e.AccountAgeMs < weekMs {
			youngWeek++
		}
		if e.AccountAgeMs < dayMs {
			youngDay++
		}
		if !e.HasAvatar {
			noAvatar++
		}
		if e.Username != "" {
			names = append(names, e.Username)
		}
		timestamps = append(timestamps, e.Timestamp)
	}

	total := float64(n)
	score := weightYoungWeek*(float64(youngWeek)/total) +
		weightYoungDay*(float64(youngDay)/total) +
		weightNoAvatar*(float64(noAvatar)/total) +
		weightSimilarNames*util.ClusteredFraction(names) +
		weightJoinTiming*RegularityScore(timestamps)

	return util.Clamp01(score)
}

// SimilarUsernameFraction is the finer pairwise variant used when filtering
// joining users for bot-like naming: the fraction of names whose best
// pairwise Levenshtein similarity to another name exceeds the cutoff.
func SimilarUsernameFraction(names []string, cutoff float64) float64 {
	if len(names) < 2 {
		return 0
	}

	similar := 0
	for i, a := range names {
		for j, b := range names {
			if i == j {
				continue
			}
			if util.Similarity(a, b) >= cutoff {
				similar++
				break
			}
		}
	}

	return float64(similar) / float64(len(names))
}
