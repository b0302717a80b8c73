package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildwatch/internal/config"
	"go-guildwatch/internal/ingest"
	"go-guildwatch/internal/models"
)

func newTestEngine(now *int64) *Engine {
	return NewEngine(Options{
		Queue:      ingest.NewRingBuffer(1024),
		Thresholds: config.DefaultThresholds(),
		Clock:      func() int64 { return *now },
	})
}

func TestSpamBurstRaisesOneAlert(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	channels := []uint64{100, 200, 300}
	for i := 0; i < 10; i++ {
		now += 2000
		e.handleEvent(models.Event{
			Kind:          models.KindMessage,
			GuildID:       1,
			ActorID:       42,
			ChannelID:     channels[i%3],
			ContentLength: 3,
			ContentHash:   0xDEAD,
			Timestamp:     now,
		})
	}

	got := e.Alerts(1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertSpamMessages, got[0].Type)
	assert.Equal(t, uint64(42), got[0].SubjectID)
	assert.Greater(t, got[0].Score, 0.6)
}

func TestSpreadMessagesStayQuiet(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	// same ten messages, six minutes apart: never enough inside one window
	for i := 0; i < 10; i++ {
		now += 360_000
		e.handleEvent(models.Event{
			Kind:          models.KindMessage,
			GuildID:       1,
			ActorID:       42,
			ChannelID:     100,
			ContentLength: 3,
			ContentHash:   0xDEAD,
			Timestamp:     now,
		})
	}

	assert.Empty(t, e.Alerts(1, 0))
}

func TestRapidJoinBurstRaisesHigh(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	for i := 0; i < 10; i++ {
		now += 20_000
		e.handleEvent(models.Event{
			Kind:         models.KindJoin,
			GuildID:      1,
			ActorID:      uint64(i + 1),
			Username:     fmt.Sprintf("raid%03d", i+1),
			AccountAgeMs: 3_600_000,
			HasAvatar:    false,
			Timestamp:    now,
		})
	}

	got := e.Alerts(1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertRapidJoins, got[0].Type)
	assert.Equal(t, models.SeverityHigh, got[0].Severity)
}

func TestMassLeaves(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	for i := 0; i < 8; i++ {
		now += 1000
		e.handleEvent(models.Event{
			Kind:      models.KindLeave,
			GuildID:   1,
			ActorID:   uint64(i + 1),
			Timestamp: now,
		})
	}

	got := e.Alerts(1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertMassLeaves, got[0].Type)
	assert.Equal(t, models.SeverityLow, got[0].Severity)
}

func TestRoleChurn(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	for i := 0; i < 12; i++ {
		now += 1000
		e.handleEvent(models.Event{
			Kind:       models.KindRoleChange,
			GuildID:    1,
			ActorID:    uint64(i%3 + 1),
			AddedRoles: []uint64{500},
			Timestamp:  now,
		})
	}

	got := e.Alerts(1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertRoleChurn, got[0].Type)
	assert.Equal(t, models.SeverityHigh, got[0].Severity)
}

func TestRoleChurnCountsRolesNotEvents(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	// four bulk updates touching three roles each cross the threshold of 12
	for i := 0; i < 4; i++ {
		now += 1000
		e.handleEvent(models.Event{
			Kind:         models.KindRoleChange,
			GuildID:      1,
			ActorID:      uint64(i + 1),
			AddedRoles:   []uint64{500, 501},
			RemovedRoles: []uint64{600},
			Timestamp:    now,
		})
	}

	got := e.Alerts(1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertRoleChurn, got[0].Type)
}

func TestVoiceHopping(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	for i := 0; i < 6; i++ {
		now += 2000
		e.handleEvent(models.Event{
			Kind:          models.KindVoiceTransition,
			GuildID:       1,
			ActorID:       9,
			FromChannelID: uint64(i + 1),
			ToChannelID:   uint64(i + 2),
			Timestamp:     now,
		})
	}

	got := e.Alerts(1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertVoiceHopping, got[0].Type)
	assert.Equal(t, uint64(9), got[0].SubjectID)
}

func TestBaselineSpike(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	e := newTestEngine(&now)

	// history: alternating 8 and 12 messages per window, mean 10 stddev 2
	for i := 0; i < 20; i++ {
		v := 8.0
		if i%2 == 1 {
			v = 12.0
		}
		e.baselines.Sample(1, metricMessageRate, v)
	}

	// current window: 40 messages from distinct members
	for i := 0; i < 40; i++ {
		e.handleEvent(models.Event{
			Kind:          models.KindMessage,
			GuildID:       1,
			ActorID:       uint64(i + 1),
			ChannelID:     100,
			ContentLength: 80,
			ContentHash:   uint64(i + 1),
			Timestamp:     now,
		})
	}
	require.Empty(t, e.Alerts(1, 0))

	e.baselineGuild(1)

	got := e.Alerts(1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertMessageSpike, got[0].Type)
	assert.Equal(t, models.SeverityHigh, got[0].Severity)
	assert.InDelta(t, 4.0, got[0].Score, 1e-9)
}

func TestBaselineAbstainsWhenCold(t *testing.T) {
	now := int64(8 * 24 * 60 * 60 * 1000)
	e := newTestEngine(&now)

	for i := 0; i < 40; i++ {
		e.handleEvent(models.Event{
			Kind:          models.KindMessage,
			GuildID:       1,
			ActorID:       uint64(i + 1),
			ChannelID:     100,
			ContentLength: 80,
			ContentHash:   uint64(i + 1),
			Timestamp:     now,
		})
	}

	e.baselineGuild(1)
	assert.Empty(t, e.Alerts(1, 0))
}

func TestUpdateThresholds(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	bad := config.Thresholds{}
	assert.Error(t, e.UpdateThresholds(0, bad))

	custom := config.DefaultThresholds()
	custom.RapidJoins.Count = 3
	require.NoError(t, e.UpdateThresholds(2, custom))

	assert.Equal(t, 3, e.Thresholds(2).RapidJoins.Count)
	assert.Equal(t, 10, e.Thresholds(3).RapidJoins.Count)

	global := config.DefaultThresholds()
	global.MassLeaves.Count = 5
	require.NoError(t, e.UpdateThresholds(0, global))
	assert.Equal(t, 5, e.Thresholds(3).MassLeaves.Count)
	// the override still shadows the new global
	assert.Equal(t, 3, e.Thresholds(2).RapidJoins.Count)
}

func TestDropGuildForgetsState(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	e.handleEvent(models.Event{Kind: models.KindJoin, GuildID: 1, ActorID: 1, Username: "x", Timestamp: now})
	require.Contains(t, e.TrackedGuilds(), uint64(1))

	e.DropGuild(1)
	assert.NotContains(t, e.TrackedGuilds(), uint64(1))

	st := e.Stats(1)
	for _, d := range st.Detectors {
		assert.Zero(t, d.Count)
	}
}

func TestStatsLiveDetectorState(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(&now)

	for i := 0; i < 4; i++ {
		now += 1000
		e.handleEvent(models.Event{
			Kind:         models.KindJoin,
			GuildID:      1,
			ActorID:      uint64(i + 1),
			Username:     fmt.Sprintf("user%d", i),
			AccountAgeMs: 3_600_000,
			Timestamp:    now,
		})
	}

	st := e.Stats(1)
	found := false
	for _, d := range st.Detectors {
		if d.Detector == models.DetectorRapidJoins {
			found = true
			assert.Equal(t, 4, d.Count)
			assert.Greater(t, d.Score, 0.0)
		}
	}
	assert.True(t, found)
	assert.Zero(t, st.Alerts.Total)
}
