package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildwatch/internal/models"
)

func testKey(guildID uint64) models.WindowKey {
	return models.WindowKey{GuildID: guildID, Detector: models.DetectorRapidJoins}
}

func TestRecentEvictsStalePrefix(t *testing.T) {
	now := int64(3000)
	s := NewStore(func() int64 { return now })
	key := testKey(1)

	s.Record(key, models.Event{Timestamp: 1000})
	s.Record(key, models.Event{Timestamp: 2000})
	s.Record(key, models.Event{Timestamp: 3000})

	entries := s.Recent(key, 1500)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2000), entries[0].Timestamp)
	assert.Equal(t, int64(3000), entries[1].Timestamp)

	now = 10000
	assert.Nil(t, s.Recent(key, 1500))
	assert.Empty(t, s.Keys(models.DetectorRapidJoins))
}

func TestCountPrunes(t *testing.T) {
	now := int64(0)
	s := NewStore(func() int64 { return now })
	key := testKey(1)

	for ts := int64(1000); ts <= 5000; ts += 1000 {
		s.Record(key, models.Event{Timestamp: ts})
	}

	now = 5000
	assert.Equal(t, 3, s.Count(key, 3000))

	now = 60000
	assert.Equal(t, 0, s.Count(key, 3000))
}

func TestRecordStampsMissingTimestamp(t *testing.T) {
	s := NewStore(func() int64 { return 7777 })
	key := testKey(1)

	s.Record(key, models.Event{})

	entries := s.Recent(key, 10000)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7777), entries[0].Timestamp)
}

func TestKeysFiltersByDetector(t *testing.T) {
	now := int64(1000)
	s := NewStore(func() int64 { return now })

	s.Record(models.WindowKey{GuildID: 1, Detector: models.DetectorSpamMessages, SubjectID: 9}, models.Event{Timestamp: 1000})
	s.Record(models.WindowKey{GuildID: 1, Detector: models.DetectorVoiceHopping, SubjectID: 9}, models.Event{Timestamp: 1000})
	s.Record(models.WindowKey{GuildID: 2, Detector: models.DetectorSpamMessages, SubjectID: 4}, models.Event{Timestamp: 1000})

	keys := s.Keys(models.DetectorSpamMessages)
	assert.Len(t, keys, 2)
	for _, k := range keys {
		assert.Equal(t, models.DetectorSpamMessages, k.Detector)
	}
}

func TestDropGuild(t *testing.T) {
	now := int64(1000)
	s := NewStore(func() int64 { return now })

	s.Record(testKey(1), models.Event{Timestamp: 1000})
	s.Record(testKey(2), models.Event{Timestamp: 1000})

	s.DropGuild(1)

	assert.Equal(t, 0, s.Count(testKey(1), 10000))
	assert.Equal(t, 1, s.Count(testKey(2), 10000))
}
