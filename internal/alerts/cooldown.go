package alerts

import (
	"sync"

	"go-guildwatch/internal/models"
)

type cooldownKey struct {
	guildID   uint64
	alertType models.AlertType
	subjectID uint64
}

const (
	// staleAfterMs is the lazy-expiry horizon: no configured cooldown
	// approaches a day, so older entries can never suppress anything.
	staleAfterMs = 24 * 60 * 60 * 1000

	pruneAbove      = 1024
	pruneIntervalMs = 60_000
)

// Cooldown suppresses repeat alerts for the same (type, guild, subject)
// within a window, so a sustained condition does not re-alert on every
// sweep tick. A zero duration admits everything. Entries expire lazily on
// Admit once the map grows past pruneAbove, keeping memory bounded by the
// set of recently-alerting subjects.
type Cooldown struct {
	mu        sync.Mutex
	last      map[cooldownKey]int64
	lastPrune int64
}

func NewCooldown() *Cooldown {
	return &Cooldown{last: make(map[cooldownKey]int64)}
}

// Admit records the alert and reports whether it may fire, given the
// configured cooldown in milliseconds at time nowMs.
func (c *Cooldown) Admit(a *models.Alert, cooldownMs, nowMs int64) bool {
	if cooldownMs <= 0 {
		return true
	}

	k := cooldownKey{guildID: a.GuildID, alertType: a.Type, subjectID: a.SubjectID}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.last[k]; ok && nowMs-prev < cooldownMs {
		return false
	}
	c.last[k] = nowMs

	if len(c.last) > pruneAbove && nowMs-c.lastPrune > pruneIntervalMs {
		c.prune(nowMs)
		c.lastPrune = nowMs
	}
	return true
}

func (c *Cooldown) prune(nowMs int64) {
	for k, ts := range c.last {
		if nowMs-ts > staleAfterMs {
			delete(c.last, k)
		}
	}
}

// ResetGuild clears cooldown state for a guild, used when detection is
// re-enabled.
func (c *Cooldown) ResetGuild(guildID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.last {
		if k.guildID == guildID {
			delete(c.last, k)
		}
	}
}
