package config

import "fmt"

// RateThreshold is a count/time-window pair with optional score cutoffs.
// Cutoffs are acknowledged hand-tuned heuristics, carried as configuration
// rather than constants.
type RateThreshold struct {
	Count       int     `json:"count"`
	WindowMs    int64   `json:"window_ms"`
	ScoreCutoff float64 `json:"score_cutoff"`
	HighScore   float64 `json:"high_score"`
}

type SpamThreshold struct {
	RateThreshold
	// SaturationCap is the message count at which the volume factor
	// saturates; defaults to twice the trigger count.
	SaturationCap int `json:"saturation_cap"`
}

type SpikeThreshold struct {
	// WindowMs is the measurement window compared against the baseline
	// estimate for the same wall-clock bucket.
	WindowMs int64 `json:"window_ms"`
	// HighMultiplier escalates severity when count exceeds this multiple
	// of the baseline mean.
	HighMultiplier float64 `json:"high_multiplier"`
}

// Thresholds carries the per-detector tuning. Loaded at startup, mutable at
// runtime through Engine.UpdateThresholds, never silently reset.
type Thresholds struct {
	RapidJoins   RateThreshold  `json:"rapid_joins"`
	SpamMessages SpamThreshold  `json:"spam_messages"`
	VoiceHopping RateThreshold  `json:"voice_hopping"`
	RoleChurn    RateThreshold  `json:"role_churn"`
	MassLeaves   RateThreshold  `json:"mass_leaves"`
	MessageSpike SpikeThreshold `json:"message_spike"`
	// AlertCooldownMs suppresses repeat alerts for the same
	// (type, guild, subject) inside the window. Zero disables.
	AlertCooldownMs int64 `json:"alert_cooldown_ms"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RapidJoins: RateThreshold{
			Count:       10,
			WindowMs:    300_000,
			ScoreCutoff: 0.6,
			HighScore:   0.8,
		},
		SpamMessages: SpamThreshold{
			RateThreshold: RateThreshold{
				Count:       8,
				WindowMs:    60_000,
				ScoreCutoff: 0.6,
				HighScore:   0.8,
			},
			SaturationCap: 16,
		},
		VoiceHopping: RateThreshold{
			Count:    6,
			WindowMs: 60_000,
		},
		RoleChurn: RateThreshold{
			Count:    12,
			WindowMs: 60_000,
		},
		MassLeaves: RateThreshold{
			Count:    8,
			WindowMs: 300_000,
		},
		MessageSpike: SpikeThreshold{
			WindowMs:       300_000,
			HighMultiplier: 3,
		},
		AlertCooldownMs: 300_000,
	}
}

// Validate rejects malformed threshold updates at the boundary so a running
// engine never swaps in a broken config.
func (t Thresholds) Validate() error {
	rates := map[string]RateThreshold{
		"rapid_joins":   t.RapidJoins,
		"spam_messages": t.SpamMessages.RateThreshold,
		"voice_hopping": t.VoiceHopping,
		"role_churn":    t.RoleChurn,
		"mass_leaves":   t.MassLeaves,
	}
	for name, r := range rates {
		if r.Count <= 0 {
			return fmt.Errorf("%s: count must be positive, got %d", name, r.Count)
		}
		if r.WindowMs <= 0 {
			return fmt.Errorf("%s: window_ms must be positive, got %d", name, r.WindowMs)
		}
		if r.ScoreCutoff < 0 || r.ScoreCutoff > 1 {
			return fmt.Errorf("%s: score_cutoff out of [0,1]: %f", name, r.ScoreCutoff)
		}
		if r.HighScore < 0 || r.HighScore > 1 {
			return fmt.Errorf("%s: high_score out of [0,1]: %f", name, r.HighScore)
		}
	}
	if t.SpamMessages.SaturationCap < t.SpamMessages.Count {
		return fmt.Errorf("spam_messages: saturation_cap %d below count %d",
			t.SpamMessages.SaturationCap, t.SpamMessages.Count)
	}
	if t.MessageSpike.WindowMs <= 0 {
		return fmt.Errorf("message_spike: window_ms must be positive, got %d", t.MessageSpike.WindowMs)
	}
	if t.MessageSpike.HighMultiplier < 1 {
		return fmt.Errorf("message_spike: high_multiplier must be >= 1, got %f", t.MessageSpike.HighMultiplier)
	}
	if t.AlertCooldownMs < 0 {
		return fmt.Errorf("alert_cooldown_ms must be non-negative, got %d", t.AlertCooldownMs)
	}
	return nil
}
