package bot

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"go-guildwatch/internal/logging"
)

type Session struct {
	discord *discordgo.Session
	token   string
	BotID   uint64
}

var globalSession *Session

// Initialize creates the Discord session with the intents the engine's
// event kinds require.
func Initialize(token string) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildPresences

	dg.StateEnabled = true
	dg.State.TrackMembers = true
	dg.State.TrackVoice = true
	dg.State.TrackPresences = true

	globalSession = &Session{
		discord: dg,
		token:   token,
	}

	return nil
}

// GetSession returns the global Discord session
func GetSession() *Session {
	return globalSession
}

// GetDiscord returns the underlying discordgo session
func (s *Session) GetDiscord() *discordgo.Session {
	return s.discord
}

// Connect opens the Discord websocket connection
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if s.discord.State.User != nil {
		botID, _ := strconv.ParseUint(s.discord.State.User.ID, 10, 64)
		s.BotID = botID
		logging.Info("Bot ID: %d", botID)
	}

	logging.Info("Discord bot connected successfully")
	return nil
}

// Close closes the Discord connection
func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}
