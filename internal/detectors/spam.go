package detectors

import (
	"go-guildwatch/internal/models"
	"go-guildwatch/pkg/util"
)

// Factor weights for the spam scorer. 0.9 of weight is graded; the flat
// cross-channel bonus uses the remaining headroom.
const (
	weightVolume     = 0.4
	weightDuplicates = 0.3
	weightShort      = 0.2
	bonusMultiChan   = 0.1
)

// veryShortLen bounds what counts as a throwaway message.
const veryShortLen = 3

// multiChanSpread is the channel count beyond which spraying the same
// content across channels earns the flat bonus.
const multiChanSpread = 2

// SpamScore rates one actor's message window. saturationCap is the count at
// which the volume factor maxes out (config, defaults to twice the trigger
// threshold).
func SpamScore(entries []models.Event, saturationCap int) float64 {
	n := len(entries)
	if n == 0 {
		return 0
	}
	if saturationCap <= 0 {
		saturationCap = n
	}

	hashes := make(map[uint64]struct{}, n)
	channels := make(map[uint64]struct{}, 4)
	short := 0

	for _, e := range entries {
		hashes[e.ContentHash] = struct{}{}
		channels[e.ChannelID] = struct{}{}
		if e.ContentLength <= veryShortLen {
			short++
		}
	}

	volume := util.Clamp01(float64(n) / float64(saturationCap))
	duplicates := float64(n-len(hashes)) / float64(n)
	shortFrac := float64(short) / float64(n)

	score := weightVolume*volume + weightDuplicates*duplicates + weightShort*shortFrac
	if len(channels) > multiChanSpread {
		score += bonusMultiChan
	}

	return util.Clamp01(score)
}
