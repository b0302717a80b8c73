package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metric = "message_rate"

func bucketAt(nowMs int64) (hour, dayOfWeek int) {
	wall := time.UnixMilli(nowMs)
	return wall.Hour(), int(wall.Weekday())
}

func TestEstimateColdStart(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	tr := NewTracker(nil, func() int64 { return now })
	hour, dow := bucketAt(now)

	for i := 0; i < minGuildSamples-1; i++ {
		tr.Sample(1, metric, 10)
	}
	assert.Nil(t, tr.Estimate(1, metric, hour, dow))

	tr.Sample(1, metric, 10)
	assert.NotNil(t, tr.Estimate(1, metric, hour, dow))
}

func TestEstimateMeanAndRange(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	tr := NewTracker(nil, func() int64 { return now })
	hour, dow := bucketAt(now)

	// alternating 8 and 12 gives mean 10, stddev 2
	for i := 0; i < 20; i++ {
		v := 8.0
		if i%2 == 1 {
			v = 12.0
		}
		tr.Sample(1, metric, v)
	}

	est := tr.Estimate(1, metric, hour, dow)
	require.NotNil(t, est)
	assert.InDelta(t, 10.0, est.Mean, 1e-9)
	assert.InDelta(t, 2.0, est.StdDev, 1e-9)
	assert.InDelta(t, 6.0, est.Min, 1e-9)
	assert.InDelta(t, 14.0, est.Max, 1e-9)
}

func TestEstimateWidensToHourOnly(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	tr := NewTracker(nil, func() int64 { return now })
	hour, dow := bucketAt(now)

	for i := 0; i < 12; i++ {
		tr.Sample(1, metric, 10)
	}

	// no exact samples for the other weekday, hour-only history still serves
	otherDow := (dow + 1) % 7
	est := tr.Estimate(1, metric, hour, otherDow)
	require.NotNil(t, est)
	assert.InDelta(t, 10.0, est.Mean, 1e-9)

	// a different hour has no history at all
	otherHour := (hour + 1) % 24
	assert.Nil(t, tr.Estimate(1, metric, otherHour, dow))
}

func TestEstimateMinFloorsAtZero(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	tr := NewTracker(nil, func() int64 { return now })
	hour, dow := bucketAt(now)

	for i := 0; i < 10; i++ {
		v := 0.0
		if i%2 == 1 {
			v = 6.0
		}
		tr.Sample(1, metric, v)
	}

	est := tr.Estimate(1, metric, hour, dow)
	require.NotNil(t, est)
	assert.Equal(t, 0.0, est.Min)
}

func TestRetentionEvictsOldSamples(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	tr := NewTracker(nil, func() int64 { return now })

	for i := 0; i < 10; i++ {
		tr.Sample(1, metric, 5)
	}
	assert.Equal(t, 10, tr.SampleCount(1, metric))

	now += retentionMs + 1000
	tr.Sample(1, metric, 5)
	assert.Equal(t, 1, tr.SampleCount(1, metric))
}

type memStore struct {
	preload []Sample
	saved   []Sample
}

func (m *memStore) SaveBaselineSample(s Sample) error { m.saved = append(m.saved, s); return nil }

func (m *memStore) LoadBaselineSamples(sinceMs int64) ([]Sample, error) {
	out := make([]Sample, 0, len(m.preload))
	for _, s := range m.preload {
		if s.Timestamp >= sinceMs {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestRestoreAndPersist(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	hour, dow := bucketAt(now)

	store := &memStore{}
	for i := 0; i < 12; i++ {
		store.preload = append(store.preload, Sample{
			GuildID:   1,
			Metric:    metric,
			Hour:      hour,
			DayOfWeek: dow,
			Value:     10,
			Timestamp: now - 1000,
		})
	}

	tr := NewTracker(store, func() int64 { return now })
	assert.Equal(t, 12, tr.SampleCount(1, metric))
	require.NotNil(t, tr.Estimate(1, metric, hour, dow))

	tr.Sample(1, metric, 11)
	require.Len(t, store.saved, 1)
	assert.Equal(t, 11.0, store.saved[0].Value)
}
