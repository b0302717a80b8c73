package database

// AlertRow mirrors one persisted alert. IDs are stored as text because
// SQLite has no unsigned 64-bit integer column.
type AlertRow struct {
	ID          string
	Type        string
	GuildID     string
	SubjectID   string
	Severity    string
	Score       float64
	Title       string
	Description string
	Details     string
	Timestamp   int64
}
