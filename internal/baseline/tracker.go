package baseline

import (
	"sync"
	"time"

	"go-guildwatch/internal/logging"
	"go-guildwatch/pkg/util"
)

const (
	retentionMs = 7 * 24 * 60 * 60 * 1000

	// minGuildSamples is the cold-start gate: below this the tracker has
	// no opinion rather than a false alarm.
	minGuildSamples = 10

	// minExactMatches widens the (hour, weekday) match to hour-only when
	// too few exact samples exist.
	minExactMatches = 3
)

// Sample is one bucketed observation of a guild metric.
type Sample struct {
	GuildID   uint64
	Metric    string
	Hour      int
	DayOfWeek int
	Value     float64
	Timestamp int64 // unix milliseconds
}

// Estimate is the expected range for a metric at a wall-clock bucket,
// derived on demand and never stored.
type Estimate struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

type metricKey struct {
	guildID uint64
	metric  string
}

// SampleStore is the optional persistence collaborator. The tracker works
// with shorter memory when it is absent or failing.
type SampleStore interface {
	SaveBaselineSample(s Sample) error
	LoadBaselineSamples(sinceMs int64) ([]Sample, error)
}

// Tracker keeps a rolling 7-day history of samples bucketed by
// (hour-of-day, day-of-week) and computes mean/stddev expected ranges.
type Tracker struct {
	mu      sync.Mutex
	samples map[metricKey][]Sample
	store   SampleStore
	now     util.Clock
}

func NewTracker(store SampleStore, clock util.Clock) *Tracker {
	if clock == nil {
		clock = util.NowMillis
	}
	t := &Tracker{
		samples: make(map[metricKey][]Sample),
		store:   store,
		now:     clock,
	}
	t.restore()
	return t
}

func (t *Tracker) restore() {
	if t.store == nil {
		return
	}
	saved, err := t.store.LoadBaselineSamples(t.now() - retentionMs)
	if err != nil {
		logging.Warn("baseline: restore failed, starting cold: %v", err)
		return
	}
	for _, s := range saved {
		k := metricKey{guildID: s.GuildID, metric: s.Metric}
		t.samples[k] = append(t.samples[k], s)
	}
	if len(saved) > 0 {
		logging.Info("baseline: restored %d samples", len(saved))
	}
}

// Sample appends one observation using the current wall-clock bucket and
// evicts samples older than the 7-day retention for that guild metric.
func (t *Tracker) Sample(guildID uint64, metric string, value float64) {
	nowMs := t.now()
	wall := time.UnixMilli(nowMs)

	s := Sample{
		GuildID:   guildID,
		Metric:    metric,
		Hour:      wall.Hour(),
		DayOfWeek: int(wall.Weekday()),
		Value:     value,
		Timestamp: nowMs,
	}

	k := metricKey{guildID: guildID, metric: metric}
	cutoff := nowMs - retentionMs

	t.mu.Lock()
	buf := append(t.samples[k], s)
	start := 0
	for start < len(buf) && buf[start].Timestamp < cutoff {
		start++
	}
	if start > 0 {
		buf = append(buf[:0], buf[start:]...)
	}
	t.samples[k] = buf
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.SaveBaselineSample(s); err != nil {
			logging.Warn("baseline: persist failed for guild %d metric %s: %v", guildID, metric, err)
		}
	}
}

// Estimate returns the expected range for the bucket, or nil when the guild
// has too little history. Exact (hour, dayOfWeek) matches are preferred;
// fewer than minExactMatches widens to same-hour-any-day.
func (t *Tracker) Estimate(guildID uint64, metric string, hour, dayOfWeek int) *Estimate {
	k := metricKey{guildID: guildID, metric: metric}

	t.mu.Lock()
	buf := t.samples[k]
	if len(buf) < minGuildSamples {
		t.mu.Unlock()
		return nil
	}

	var exact, hourly []float64
	for _, s := range buf {
		if s.Hour == hour {
			hourly = append(hourly, s.Value)
			if s.DayOfWeek == dayOfWeek {
				exact = append(exact, s.Value)
			}
		}
	}
	t.mu.Unlock()

	values := exact
	if len(values) < minExactMatches {
		values = hourly
	}
	if len(values) == 0 {
		return nil
	}

	mean, stdDev := util.MeanStdDev(values)
	min := mean - 2*stdDev
	if min < 0 {
		min = 0
	}

	return &Estimate{
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    mean + 2*stdDev,
	}
}

// SampleCount reports the retained history size for a guild metric.
func (t *Tracker) SampleCount(guildID uint64, metric string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples[metricKey{guildID: guildID, metric: metric}])
}
