package models

// Detector identifies one anomaly category's window namespace.
type Detector uint8

const (
	DetectorRapidJoins Detector = iota
	DetectorSpamMessages
	DetectorVoiceHopping
	DetectorRoleChurn
	DetectorMessageSpike
	DetectorMassLeaves
)

func (d Detector) String() string {
	switch d {
	case DetectorRapidJoins:
		return "rapid_joins"
	case DetectorSpamMessages:
		return "spam_messages"
	case DetectorVoiceHopping:
		return "voice_hopping"
	case DetectorRoleChurn:
		return "role_churn"
	case DetectorMessageSpike:
		return "message_spike"
	default:
		return "mass_leaves"
	}
}

// WindowKey identifies one sliding-window buffer. It is a typed composite so
// buffers for different detectors can never collide the way concatenated
// string keys can. SubjectID is zero for guild-scoped windows and the actor
// ID for per-actor windows (spam, voice hopping).
type WindowKey struct {
	GuildID   uint64
	Detector  Detector
	SubjectID uint64
}
