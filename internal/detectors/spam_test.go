package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-guildwatch/internal/models"
)

func spamBurst(n int, hash uint64, contentLen int, channels []uint64) []models.Event {
	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, models.Event{
			Kind:          models.KindMessage,
			GuildID:       1,
			ActorID:       42,
			ChannelID:     channels[i%len(channels)],
			ContentLength: contentLen,
			ContentHash:   hash,
			Timestamp:     int64(i) * 5000,
		})
	}
	return events
}

func TestSpamScoreIdenticalSprayedAcrossChannels(t *testing.T) {
	// ten copies of the same three-character message across three channels
	entries := spamBurst(10, 0xDEAD, 3, []uint64{100, 200, 300})

	score := SpamScore(entries, 16)
	assert.Greater(t, score, 0.8)
	assert.LessOrEqual(t, score, 1.0)
}

func TestSpamScoreUniqueLongMessages(t *testing.T) {
	entries := make([]models.Event, 0, 10)
	for i := 0; i < 10; i++ {
		entries = append(entries, models.Event{
			Kind:          models.KindMessage,
			GuildID:       1,
			ActorID:       42,
			ChannelID:     100,
			ContentLength: 120,
			ContentHash:   uint64(i + 1),
			Timestamp:     int64(i) * 5000,
		})
	}

	assert.Less(t, SpamScore(entries, 16), 0.6)
}

func TestSpamScoreVolumeSaturates(t *testing.T) {
	small := spamBurst(16, 0xBEEF, 3, []uint64{100})
	large := spamBurst(64, 0xBEEF, 3, []uint64{100})

	// beyond the saturation cap more volume cannot raise the factor
	assert.InDelta(t, SpamScore(small, 16), SpamScore(large, 16), 0.05)
	assert.LessOrEqual(t, SpamScore(large, 16), 1.0)
}

func TestSpamScoreNoCrossChannelBonusForTwoChannels(t *testing.T) {
	two := spamBurst(10, 0xDEAD, 3, []uint64{100, 200})
	three := spamBurst(10, 0xDEAD, 3, []uint64{100, 200, 300})

	assert.InDelta(t, 0.1, SpamScore(three, 16)-SpamScore(two, 16), 1e-9)
}

func TestSpamScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, SpamScore(nil, 16))
}
