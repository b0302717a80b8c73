package bot

import (
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-guildwatch/internal/engine"
	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/models"
	"go-guildwatch/pkg/util"
)

// discordEpochMs is the Discord snowflake epoch; account age is derived
// from the creation time embedded in the user ID.
const discordEpochMs = 1420070400000

func snowflakeTimeMs(id uint64) int64 {
	return int64(id>>22) + discordEpochMs
}

func parseID(s string) uint64 {
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}

// maxTrackedMembers caps the role cache. Evicted members fall back to the
// cold-start diff (no previous set) on their next update, same as a member
// seen for the first time.
const maxTrackedMembers = 1 << 16

// roleCache remembers each member's last-seen role set so role-change
// events can be diffed even when the gateway omits BeforeUpdate.
type roleCache struct {
	mu    sync.Mutex
	roles map[string][]string // guildID:userID -> role IDs
}

var memberRoles = &roleCache{roles: make(map[string][]string)}

func (c *roleCache) swap(guildID, userID string, current []string) (previous []string) {
	key := guildID + ":" + userID

	c.mu.Lock()
	defer c.mu.Unlock()

	previous, cached := c.roles[key]
	if !cached && len(c.roles) >= maxTrackedMembers {
		for k := range c.roles {
			delete(c.roles, k)
			break
		}
	}
	c.roles[key] = current
	return previous
}

func diffRoles(before, after []string) (added, removed []uint64) {
	beforeSet := make(map[string]struct{}, len(before))
	for _, r := range before {
		beforeSet[r] = struct{}{}
	}
	afterSet := make(map[string]struct{}, len(after))
	for _, r := range after {
		afterSet[r] = struct{}{}
	}

	for _, r := range after {
		if _, ok := beforeSet[r]; !ok {
			added = append(added, parseID(r))
		}
	}
	for _, r := range before {
		if _, ok := afterSet[r]; !ok {
			removed = append(removed, parseID(r))
		}
	}
	return added, removed
}

// SetupEventHandlers translates platform callbacks into normalized events
// and feeds them to the engine. The bot itself is never an actor worth
// scoring, so its own events are skipped.
func (s *Session) SetupEventHandlers(eng *engine.Engine) {
	logging.Info("Setting up Discord event handlers...")

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.Ready) {
		logging.Info("Bot ready! Connected as %s across %d guilds", r.User.Username, len(r.Guilds))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, g *discordgo.GuildDelete) {
		if g.ID == "" {
			return
		}
		eng.DropGuild(parseID(g.ID))
		logging.Info("Bot removed from guild %s, state dropped", g.ID)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.GuildID == "" || m.User == nil {
			return
		}

		userID := parseID(m.User.ID)
		ageMs := time.Now().UnixMilli() - snowflakeTimeMs(userID)

		eng.OnEvent(models.Event{
			Kind:         models.KindJoin,
			GuildID:      parseID(m.GuildID),
			ActorID:      userID,
			Username:     m.User.Username,
			AccountAgeMs: ageMs,
			HasAvatar:    m.User.Avatar != "",
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if m.GuildID == "" || m.User == nil {
			return
		}

		eng.OnEvent(models.Event{
			Kind:    models.KindLeave,
			GuildID: parseID(m.GuildID),
			ActorID: parseID(m.User.ID),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.MessageCreate) {
		if m.GuildID == "" || m.Author == nil || m.Author.Bot {
			return
		}
		if s.BotID != 0 && parseID(m.Author.ID) == s.BotID {
			return
		}

		eng.OnEvent(models.Event{
			Kind:          models.KindMessage,
			GuildID:       parseID(m.GuildID),
			ActorID:       parseID(m.Author.ID),
			ChannelID:     parseID(m.ChannelID),
			ContentLength: len(m.Content),
			ContentHash:   util.ContentHash(m.Content),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		if v.GuildID == "" || v.ChannelID == "" {
			return
		}
		// joins and moves count as transitions; plain disconnects don't
		if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID == v.ChannelID {
			return
		}

		from := uint64(0)
		if v.BeforeUpdate != nil {
			from = parseID(v.BeforeUpdate.ChannelID)
		}

		eng.OnEvent(models.Event{
			Kind:          models.KindVoiceTransition,
			GuildID:       parseID(v.GuildID),
			ActorID:       parseID(v.UserID),
			FromChannelID: from,
			ToChannelID:   parseID(v.ChannelID),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberUpdate) {
		if m.GuildID == "" || m.User == nil {
			return
		}

		var before []string
		if m.BeforeUpdate != nil {
			before = m.BeforeUpdate.Roles
			memberRoles.swap(m.GuildID, m.User.ID, m.Roles)
		} else {
			before = memberRoles.swap(m.GuildID, m.User.ID, m.Roles)
		}

		added, removed := diffRoles(before, m.Roles)
		if len(added) == 0 && len(removed) == 0 {
			return
		}

		eng.OnEvent(models.Event{
			Kind:         models.KindRoleChange,
			GuildID:      parseID(m.GuildID),
			ActorID:      parseID(m.User.ID),
			AddedRoles:   added,
			RemovedRoles: removed,
		})
	})

	logging.Info("Discord event handlers configured successfully")
}
