package models

// EventKind discriminates the normalized event union. All detector code
// operates on this shape only; platform adapters translate into it at the
// ingest boundary.
type EventKind uint8

const (
	KindUnknown EventKind = iota
	KindJoin
	KindLeave
	KindMessage
	KindVoiceTransition
	KindRoleChange
)

func (k EventKind) String() string {
	switch k {
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindMessage:
		return "message"
	case KindVoiceTransition:
		return "voice_transition"
	case KindRoleChange:
		return "role_change"
	default:
		return "unknown"
	}
}

// Event is an immutable normalized record. Kind-specific attributes share the
// struct; only the fields relevant to the Kind are populated.
type Event struct {
	Kind      EventKind
	GuildID   uint64
	ActorID   uint64
	Timestamp int64 // unix milliseconds

	// join
	Username     string
	AccountAgeMs int64
	HasAvatar    bool

	// message
	ChannelID     uint64
	ContentLength int
	ContentHash   uint64

	// voice transition
	FromChannelID uint64
	ToChannelID   uint64

	// role change
	AddedRoles   []uint64
	RemovedRoles []uint64
}

// RoleDelta is the number of role grants plus revocations carried by a
// role-change event.
func (e *Event) RoleDelta() int {
	if e.Kind != KindRoleChange {
		return 0
	}
	return len(e.AddedRoles) + len(e.RemovedRoles)
}
