package detectors

import (
	"sort"

	"go-guildwatch/pkg/util"
)

// regularityCV is the coefficient-of-variation cutoff below which
// inter-arrival timing is considered machine-regular. Human timing is
// irregular, so low variance is the anomalous signal.
const regularityCV = 0.3

const regularityScore = 0.8

// RegularityScore inspects inter-arrival intervals of the timestamps
// (unix ms). Suspiciously regular spacing scores 0.8; fewer than three
// timestamps cannot establish a pattern and score 0.
func RegularityScore(timestamps []int64) float64 {
	if len(timestamps) < 3 {
		return 0
	}

	sorted := make([]int64, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, float64(sorted[i]-sorted[i-1]))
	}

	mean, stdDev := util.MeanStdDev(intervals)
	if mean <= 0 {
		// all events in the same millisecond, maximally regular
		return regularityScore
	}

	if stdDev/mean < regularityCV {
		return regularityScore
	}
	return 0
}
