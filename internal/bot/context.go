package bot

import (
	"fmt"
	"strconv"
)

// GuildContext implements engine.GuildContext against the session's state
// cache, so detector context lookups never hit the REST API on the
// detection path. The session is resolved lazily because the engine is
// constructed before the gateway connects.
type GuildContext struct{}

func NewGuildContext() *GuildContext {
	return &GuildContext{}
}

func (g *GuildContext) MemberCount(guildID uint64) (int, error) {
	session := GetSession()
	if session == nil {
		return 0, fmt.Errorf("gateway session not initialized")
	}

	guild, err := session.discord.State.Guild(strconv.FormatUint(guildID, 10))
	if err != nil {
		return 0, fmt.Errorf("guild %d not in state cache: %w", guildID, err)
	}
	return guild.MemberCount, nil
}

func (g *GuildContext) OnlineCount(guildID uint64) (int, error) {
	session := GetSession()
	if session == nil {
		return 0, fmt.Errorf("gateway session not initialized")
	}

	guild, err := session.discord.State.Guild(strconv.FormatUint(guildID, 10))
	if err != nil {
		return 0, fmt.Errorf("guild %d not in state cache: %w", guildID, err)
	}

	online := 0
	for _, p := range guild.Presences {
		if p.Status != "offline" && p.Status != "" {
			online++
		}
	}
	return online, nil
}
