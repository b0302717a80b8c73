package models

// AlertType names one anomaly category.
type AlertType string

const (
	AlertRapidJoins   AlertType = "rapid_joins"
	AlertSpamMessages AlertType = "spam_messages"
	AlertVoiceHopping AlertType = "voice_hopping"
	AlertRoleChurn    AlertType = "role_churn"
	AlertMessageSpike AlertType = "message_spike"
	AlertMassLeaves   AlertType = "mass_leaves"
)

type Severity uint8

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "low"
	}
}

// Alert is immutable once created. The alert manager assigns ID and Timestamp
// on Raise and owns the record afterwards.
type Alert struct {
	ID          string
	Type        AlertType
	GuildID     uint64
	SubjectID   uint64 // actor the alert is about, 0 for guild-wide
	Severity    Severity
	Score       float64
	Title       string
	Description string
	Details     map[string]string
	Timestamp   int64 // unix milliseconds
}
