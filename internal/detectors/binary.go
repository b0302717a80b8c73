package detectors

import "go-guildwatch/internal/models"

// The binary detectors have no graded score: crossing the count threshold is
// the whole signal.

// VoiceHopTriggered reports whether one actor's channel-transition count in
// the window crosses the threshold. Alerts at fixed medium severity.
func VoiceHopTriggered(count, threshold int) bool {
	return threshold > 0 && count >= threshold
}

// RoleChurnTriggered reports whether guild-wide role add/remove activity in
// the window crosses the threshold. Alerts at fixed high severity.
func RoleChurnTriggered(count, threshold int) bool {
	return threshold > 0 && count >= threshold
}

// MassLeaveSeverity returns whether the leave count triggers and, if so, a
// severity scaled by magnitude band relative to the threshold.
func MassLeaveSeverity(count, threshold int) (bool, models.Severity) {
	if threshold <= 0 || count < threshold {
		return false, models.SeverityLow
	}
	switch {
	case count >= 3*threshold:
		return true, models.SeverityHigh
	case 2*count >= 3*threshold:
		return true, models.SeverityMedium
	default:
		return true, models.SeverityLow
	}
}
