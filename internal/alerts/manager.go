package alerts

import (
	"sync"

	"github.com/google/uuid"

	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/models"
	"go-guildwatch/pkg/util"
)

// DefaultCap bounds the in-memory alert history.
const DefaultCap = 100

// Sink receives every admitted alert. The host decides delivery: chat
// message, webhook, log.
type Sink interface {
	Notify(alert models.Alert)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(alert models.Alert)

func (f SinkFunc) Notify(alert models.Alert) { f(alert) }

// HistoryStore is the optional persistence collaborator for raised alerts.
type HistoryStore interface {
	SaveAlert(alert models.Alert) error
}

// Stats aggregates alert history for one guild (or all guilds).
type Stats struct {
	Total      int
	Last24h    int
	BySeverity map[string]int
	ByType     map[models.AlertType]int
}

// Manager owns the bounded newest-first alert list. Raising never fails the
// caller: persistence and sink errors are logged and swallowed.
type Manager struct {
	mu       sync.Mutex
	alerts   []models.Alert
	cap      int
	cooldown *Cooldown
	store    HistoryStore
	sinks    []Sink
	now      util.Clock
}

func NewManager(capacity int, store HistoryStore, clock util.Clock) *Manager {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	if clock == nil {
		clock = util.NowMillis
	}
	return &Manager{
		cap:      capacity,
		cooldown: NewCooldown(),
		store:    store,
		now:      clock,
	}
}

// AddSink registers a delivery callback invoked for every admitted alert.
func (m *Manager) AddSink(s Sink) {
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// Raise stamps, deduplicates, retains, persists, and fans out the alert.
// Returns false when the cooldown suppressed it.
func (m *Manager) Raise(alert models.Alert, cooldownMs int64) bool {
	alert.ID = uuid.NewString()
	alert.Timestamp = m.now()

	if !m.cooldown.Admit(&alert, cooldownMs, alert.Timestamp) {
		logging.Debug("alerts: %s for guild %d suppressed by cooldown", alert.Type, alert.GuildID)
		return false
	}

	m.mu.Lock()
	m.alerts = append([]models.Alert{alert}, m.alerts...)
	if len(m.alerts) > m.cap {
		m.alerts = m.alerts[:m.cap]
	}
	sinks := make([]Sink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.Unlock()

	logging.Info("alerts: %s severity=%s guild=%d score=%.2f %s",
		alert.Type, alert.Severity, alert.GuildID, alert.Score, alert.Title)

	if m.store != nil {
		go func(a models.Alert) {
			if err := m.store.SaveAlert(a); err != nil {
				logging.Warn("alerts: persist failed for %s: %v", a.ID, err)
			}
		}(alert)
	}

	for _, s := range sinks {
		s.Notify(alert)
	}
	return true
}

// Query returns up to limit alerts newest-first, filtered by guild when
// guildID is non-zero.
func (m *Manager) Query(guildID uint64, limit int) []models.Alert {
	if limit <= 0 || limit > m.cap {
		limit = m.cap
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Alert, 0, limit)
	for _, a := range m.alerts {
		if guildID != 0 && a.GuildID != guildID {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Stats aggregates retained alerts by severity and type, with a last-24h
// subset.
func (m *Manager) Stats(guildID uint64) Stats {
	dayAgo := m.now() - 24*60*60*1000

	st := Stats{
		BySeverity: make(map[string]int),
		ByType:     make(map[models.AlertType]int),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.alerts {
		if guildID != 0 && a.GuildID != guildID {
			continue
		}
		st.Total++
		st.BySeverity[a.Severity.String()]++
		st.ByType[a.Type]++
		if a.Timestamp >= dayAgo {
			st.Last24h++
		}
	}
	return st
}

// ResetGuildCooldowns clears suppression state, used when a guild re-enables
// detection.
func (m *Manager) ResetGuildCooldowns(guildID uint64) {
	m.cooldown.ResetGuild(guildID)
}
