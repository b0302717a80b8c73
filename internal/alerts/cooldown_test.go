package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildwatch/internal/models"
)

func TestCooldownPrunesStaleEntries(t *testing.T) {
	c := NewCooldown()
	now := int64(1_000_000)

	for i := 0; i < pruneAbove+200; i++ {
		a := models.Alert{Type: models.AlertSpamMessages, GuildID: 1, SubjectID: uint64(i + 1)}
		require.True(t, c.Admit(&a, 300_000, now))
	}
	// nothing is stale yet, so the map keeps every live entry
	assert.Equal(t, pruneAbove+200, len(c.last))

	now += staleAfterMs + 1000
	a := models.Alert{Type: models.AlertSpamMessages, GuildID: 1, SubjectID: 999_999}
	require.True(t, c.Admit(&a, 300_000, now))

	assert.Equal(t, 1, len(c.last))
}

func TestCooldownPruneKeepsLiveEntries(t *testing.T) {
	c := NewCooldown()
	now := int64(1_000_000)

	for i := 0; i < pruneAbove+10; i++ {
		a := models.Alert{Type: models.AlertRapidJoins, GuildID: uint64(i + 1)}
		require.True(t, c.Admit(&a, 300_000, now))
	}

	// half a day later everything is still inside the expiry horizon
	now += staleAfterMs / 2
	a := models.Alert{Type: models.AlertRapidJoins, GuildID: 999_999}
	require.True(t, c.Admit(&a, 300_000, now))
	assert.Equal(t, pruneAbove+11, len(c.last))
}
