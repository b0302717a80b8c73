package notifier

import (
	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/models"
)

// LogSink writes alerts to the process log; the fallback sink when no
// channel or webhook is configured.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (l *LogSink) Notify(alert models.Alert) {
	logging.Warn("ALERT [%s/%s] guild=%d subject=%d score=%.2f: %s (%s)",
		alert.Type, alert.Severity, alert.GuildID, alert.SubjectID,
		alert.Score, alert.Title, alert.Description)
}
