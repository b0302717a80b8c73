package notifier

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-guildwatch/internal/models"
)

var severityColors = map[models.Severity]int{
	models.SeverityLow:    0x57F287,
	models.SeverityMedium: 0xFEE75C,
	models.SeverityHigh:   0xED4245,
}

// DiscordSink posts each alert as an embed to a log channel.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordSink(session *discordgo.Session, channelID string) *DiscordSink {
	return &DiscordSink{session: session, channelID: channelID}
}

func (d *DiscordSink) Notify(alert models.Alert) {
	if d.session == nil || d.channelID == "" {
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Guild",
			Value:  fmt.Sprintf("`%d`", alert.GuildID),
			Inline: true,
		},
		{
			Name:   "Severity",
			Value:  fmt.Sprintf("**%s**", alert.Severity),
			Inline: true,
		},
	}

	if alert.SubjectID != 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Subject",
			Value:  fmt.Sprintf("<@%d> (`%d`)", alert.SubjectID, alert.SubjectID),
			Inline: true,
		})
	}
	if alert.Score > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Suspicion",
			Value:  fmt.Sprintf("`%.2f`", alert.Score),
			Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("⚠️ %s", alert.Title),
		Color:       severityColors[alert.Severity],
		Description: alert.Description,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("guildwatch · %s", alert.Type),
		},
		Timestamp: time.UnixMilli(alert.Timestamp).Format(time.RFC3339),
	}

	// fire and forget, alert delivery never blocks detection
	go d.session.ChannelMessageSendEmbed(d.channelID, embed)
}
