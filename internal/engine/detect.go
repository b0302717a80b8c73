package engine

import (
	"fmt"
	"time"

	"go-guildwatch/internal/config"
	"go-guildwatch/internal/detectors"
	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/metrics"
	"go-guildwatch/internal/models"
)

// metricMessageRate is the baseline metric name for messages per
// measurement window.
const metricMessageRate = "message_rate"

func scoreJoins(entries []models.Event) float64 {
	if len(entries) == 0 {
		return 0
	}
	return detectors.RapidJoinScore(entries)
}

// handleEvent is the event-triggered path: record into the matching window,
// then run that detector once the count gate passes. Read-modify-write for
// one key happens entirely within this call.
func (e *Engine) handleEvent(ev models.Event) {
	e.trackGuild(ev.GuildID)
	metrics.EventsIngested.WithLabelValues(ev.Kind.String()).Inc()

	t := e.Thresholds(ev.GuildID)

	switch ev.Kind {
	case models.KindJoin:
		key := models.WindowKey{GuildID: ev.GuildID, Detector: models.DetectorRapidJoins}
		e.windows.Record(key, ev)
		e.checkRapidJoins(ev.GuildID, t)

	case models.KindLeave:
		key := models.WindowKey{GuildID: ev.GuildID, Detector: models.DetectorMassLeaves}
		e.windows.Record(key, ev)
		e.checkMassLeaves(ev.GuildID, t)

	case models.KindMessage:
		spamKey := models.WindowKey{GuildID: ev.GuildID, Detector: models.DetectorSpamMessages, SubjectID: ev.ActorID}
		e.windows.Record(spamKey, ev)
		// guild-wide message window feeds the baseline sweep
		spikeKey := models.WindowKey{GuildID: ev.GuildID, Detector: models.DetectorMessageSpike}
		e.windows.Record(spikeKey, ev)
		e.checkSpam(ev.GuildID, ev.ActorID, t)

	case models.KindVoiceTransition:
		key := models.WindowKey{GuildID: ev.GuildID, Detector: models.DetectorVoiceHopping, SubjectID: ev.ActorID}
		e.windows.Record(key, ev)
		e.checkVoiceHop(ev.GuildID, ev.ActorID, t)

	case models.KindRoleChange:
		key := models.WindowKey{GuildID: ev.GuildID, Detector: models.DetectorRoleChurn}
		e.windows.Record(key, ev)
		e.checkRoleChurn(ev.GuildID, t)
	}
}

func (e *Engine) checkRapidJoins(guildID uint64, t config.Thresholds) {
	key := models.WindowKey{GuildID: guildID, Detector: models.DetectorRapidJoins}
	entries := e.windows.Recent(key, t.RapidJoins.WindowMs)
	if len(entries) < t.RapidJoins.Count {
		return
	}

	score := detectors.RapidJoinScore(entries)
	if score <= t.RapidJoins.ScoreCutoff {
		return
	}

	severity := models.SeverityMedium
	if score > t.RapidJoins.HighScore {
		severity = models.SeverityHigh
	}

	e.raise(models.Alert{
		Type:     models.AlertRapidJoins,
		GuildID:  guildID,
		Severity: severity,
		Score:    score,
		Title:    fmt.Sprintf("%d joins in %s", len(entries), windowLabel(t.RapidJoins.WindowMs)),
		Description: fmt.Sprintf(
			"Join burst with raid characteristics (suspicion %.2f): young accounts, missing avatars, or bot-like naming.",
			score),
		Details: map[string]string{
			"join_count": fmt.Sprintf("%d", len(entries)),
			"score":      fmt.Sprintf("%.3f", score),
			"members":    fmt.Sprintf("%d", e.memberCount(guildID)),
		},
	}, t)
}

func (e *Engine) checkSpam(guildID, actorID uint64, t config.Thresholds) {
	key := models.WindowKey{GuildID: guildID, Detector: models.DetectorSpamMessages, SubjectID: actorID}
	entries := e.windows.Recent(key, t.SpamMessages.WindowMs)
	if len(entries) < t.SpamMessages.Count {
		return
	}

	score := detectors.SpamScore(entries, t.SpamMessages.SaturationCap)
	if score <= t.SpamMessages.ScoreCutoff {
		return
	}

	severity := models.SeverityMedium
	if score > t.SpamMessages.HighScore {
		severity = models.SeverityHigh
	}

	channels := make(map[uint64]struct{})
	for _, m := range entries {
		channels[m.ChannelID] = struct{}{}
	}

	e.raise(models.Alert{
		Type:      models.AlertSpamMessages,
		GuildID:   guildID,
		SubjectID: actorID,
		Severity:  severity,
		Score:     score,
		Title:     fmt.Sprintf("spam pattern from actor %d", actorID),
		Description: fmt.Sprintf(
			"%d messages in %s across %d channels (suspicion %.2f).",
			len(entries), windowLabel(t.SpamMessages.WindowMs), len(channels), score),
		Details: map[string]string{
			"message_count": fmt.Sprintf("%d", len(entries)),
			"channel_count": fmt.Sprintf("%d", len(channels)),
			"score":         fmt.Sprintf("%.3f", score),
		},
	}, t)
}

func (e *Engine) checkVoiceHop(guildID, actorID uint64, t config.Thresholds) {
	key := models.WindowKey{GuildID: guildID, Detector: models.DetectorVoiceHopping, SubjectID: actorID}
	count := e.windows.Count(key, t.VoiceHopping.WindowMs)
	if !detectors.VoiceHopTriggered(count, t.VoiceHopping.Count) {
		return
	}

	e.raise(models.Alert{
		Type:      models.AlertVoiceHopping,
		GuildID:   guildID,
		SubjectID: actorID,
		Severity:  models.SeverityMedium,
		Title:     fmt.Sprintf("voice channel hopping by actor %d", actorID),
		Description: fmt.Sprintf("%d voice channel transitions in %s.",
			count, windowLabel(t.VoiceHopping.WindowMs)),
		Details: map[string]string{
			"transition_count": fmt.Sprintf("%d", count),
		},
	}, t)
}

func (e *Engine) checkRoleChurn(guildID uint64, t config.Thresholds) {
	key := models.WindowKey{GuildID: guildID, Detector: models.DetectorRoleChurn}
	entries := e.windows.Recent(key, t.RoleChurn.WindowMs)

	// one update event can grant or strip several roles at once
	count := 0
	for i := range entries {
		count += entries[i].RoleDelta()
	}
	if !detectors.RoleChurnTriggered(count, t.RoleChurn.Count) {
		return
	}

	e.raise(models.Alert{
		Type:     models.AlertRoleChurn,
		GuildID:  guildID,
		Severity: models.SeverityHigh,
		Title:    fmt.Sprintf("role change storm (%d events)", count),
		Description: fmt.Sprintf("%d role grants/revocations guild-wide in %s.",
			count, windowLabel(t.RoleChurn.WindowMs)),
		Details: map[string]string{
			"change_count": fmt.Sprintf("%d", count),
		},
	}, t)
}

func (e *Engine) checkMassLeaves(guildID uint64, t config.Thresholds) {
	key := models.WindowKey{GuildID: guildID, Detector: models.DetectorMassLeaves}
	count := e.windows.Count(key, t.MassLeaves.WindowMs)
	triggered, severity := detectors.MassLeaveSeverity(count, t.MassLeaves.Count)
	if !triggered {
		return
	}

	e.raise(models.Alert{
		Type:     models.AlertMassLeaves,
		GuildID:  guildID,
		Severity: severity,
		Title:    fmt.Sprintf("mass exit (%d leaves)", count),
		Description: fmt.Sprintf("%d members left in %s.",
			count, windowLabel(t.MassLeaves.WindowMs)),
		Details: map[string]string{
			"leave_count": fmt.Sprintf("%d", count),
			"members":     fmt.Sprintf("%d", e.memberCount(guildID)),
		},
	}, t)
}

// sweep is the lightweight periodic pass: every tracked guild re-evaluated
// against the rate detectors, each guild isolated so one failure cannot
// abort the others.
func (e *Engine) sweep() {
	start := time.Now()

	for _, guildID := range e.TrackedGuilds() {
		e.sweepGuild(guildID)
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())

	if e.heartbeat != nil {
		e.heartbeat()
	}
}

func (e *Engine) sweepGuild(guildID uint64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SweepGuildFailures.Inc()
			logging.Error("engine: sweep panic for guild %d: %v", guildID, r)
		}
	}()

	t := e.Thresholds(guildID)

	e.checkRapidJoins(guildID, t)
	e.checkMassLeaves(guildID, t)
	e.checkRoleChurn(guildID, t)

	for _, key := range e.windows.Keys(models.DetectorVoiceHopping) {
		if key.GuildID == guildID {
			e.checkVoiceHop(guildID, key.SubjectID, t)
		}
	}
	for _, key := range e.windows.Keys(models.DetectorSpamMessages) {
		if key.GuildID == guildID {
			e.checkSpam(guildID, key.SubjectID, t)
		}
	}
}

// baselineSweep runs on the slower cadence: estimate first (against history
// only), then record the fresh sample, then judge the spike.
func (e *Engine) baselineSweep() {
	for _, guildID := range e.TrackedGuilds() {
		e.baselineGuild(guildID)
	}
}

func (e *Engine) baselineGuild(guildID uint64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SweepGuildFailures.Inc()
			logging.Error("engine: baseline sweep panic for guild %d: %v", guildID, r)
		}
	}()

	t := e.Thresholds(guildID)

	spikeKey := models.WindowKey{GuildID: guildID, Detector: models.DetectorMessageSpike}
	count := float64(e.windows.Count(spikeKey, t.MessageSpike.WindowMs))

	wall := time.UnixMilli(e.now())
	est := e.baselines.Estimate(guildID, metricMessageRate, wall.Hour(), int(wall.Weekday()))

	e.baselines.Sample(guildID, metricMessageRate, count)
	if members := e.memberCount(guildID); members > 0 {
		e.baselines.Sample(guildID, "member_count", float64(members))
	}
	if online := e.onlineCount(guildID); online > 0 {
		e.baselines.Sample(guildID, "online_count", float64(online))
	}

	triggered, severity := detectors.MessageSpikeCheck(count, est, t.MessageSpike.HighMultiplier)
	if !triggered {
		return
	}

	ratio := 0.0
	if est.Mean > 0 {
		ratio = count / est.Mean
	}

	e.raise(models.Alert{
		Type:     models.AlertMessageSpike,
		GuildID:  guildID,
		Severity: severity,
		Score:    ratio,
		Title:    fmt.Sprintf("message rate spike (%.0f msgs)", count),
		Description: fmt.Sprintf(
			"%.0f messages in %s against an expected range of %.1f-%.1f for this hour.",
			count, windowLabel(t.MessageSpike.WindowMs), est.Min, est.Max),
		Details: map[string]string{
			"count":         fmt.Sprintf("%.0f", count),
			"baseline_mean": fmt.Sprintf("%.2f", est.Mean),
			"baseline_max":  fmt.Sprintf("%.2f", est.Max),
		},
	}, t)
}

func (e *Engine) raise(alert models.Alert, t config.Thresholds) {
	if e.alerts.Raise(alert, t.AlertCooldownMs) {
		metrics.AlertsRaised.WithLabelValues(string(alert.Type), alert.Severity.String()).Inc()
	} else {
		metrics.AlertsSuppressed.WithLabelValues(string(alert.Type)).Inc()
	}
}

func windowLabel(windowMs int64) string {
	d := time.Duration(windowMs) * time.Millisecond
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return d.String()
}
