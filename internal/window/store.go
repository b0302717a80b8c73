package window

import (
	"sync"

	"go-guildwatch/internal/models"
	"go-guildwatch/pkg/util"
)

// Store owns every sliding-window buffer, keyed by the typed composite
// WindowKey. Entries arrive in time order per key, so eviction is a prefix
// trim performed lazily on read. No background timers; memory stays bounded
// because every read prunes.
type Store struct {
	mu      sync.Mutex
	windows map[models.WindowKey][]models.Event
	now     util.Clock
}

func NewStore(clock util.Clock) *Store {
	if clock == nil {
		clock = util.NowMillis
	}
	return &Store{
		windows: make(map[models.WindowKey][]models.Event),
		now:     clock,
	}
}

// Record appends the event under key, stamping it with the current clock if
// the event carries no timestamp. Never blocks beyond the map lock.
func (s *Store) Record(key models.WindowKey, ev models.Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = s.now()
	}

	s.mu.Lock()
	s.windows[key] = append(s.windows[key], ev)
	s.mu.Unlock()
}

// Recent returns the entries younger than durationMs in arrival order,
// pruning the stale prefix in place. A missing key is an empty window.
func (s *Store) Recent(key models.WindowKey, durationMs int64) []models.Event {
	cutoff := s.now() - durationMs

	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.windows[key]
	if !ok {
		return nil
	}

	start := 0
	for start < len(buf) && buf[start].Timestamp <= cutoff {
		start++
	}

	if start == len(buf) {
		delete(s.windows, key)
		return nil
	}
	if start > 0 {
		buf = append(buf[:0], buf[start:]...)
		s.windows[key] = buf
	}

	out := make([]models.Event, len(buf))
	copy(out, buf)
	return out
}

// Count is Recent without materializing the entries.
func (s *Store) Count(key models.WindowKey, durationMs int64) int {
	cutoff := s.now() - durationMs

	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.windows[key]
	if !ok {
		return 0
	}

	start := 0
	for start < len(buf) && buf[start].Timestamp <= cutoff {
		start++
	}

	if start == len(buf) {
		delete(s.windows, key)
		return 0
	}
	if start > 0 {
		buf = append(buf[:0], buf[start:]...)
		s.windows[key] = buf
	}

	return len(buf)
}

// Keys snapshots the live window keys, optionally filtered by detector.
// Used by the periodic sweep to find per-actor windows worth re-checking.
func (s *Store) Keys(detector models.Detector) []models.WindowKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]models.WindowKey, 0, len(s.windows))
	for k := range s.windows {
		if k.Detector == detector {
			keys = append(keys, k)
		}
	}
	return keys
}

// DropGuild discards every window belonging to the guild, used when a guild
// is removed or detection is disabled for it.
func (s *Store) DropGuild(guildID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.windows {
		if k.GuildID == guildID {
			delete(s.windows, k)
		}
	}
}
