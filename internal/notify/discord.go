package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

// messageSender is the slice of *discordgo.Session the notifier uses
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts the summary to a channel through the REST API.
// No gateway connection is opened.
type Discord struct {
	session   messageSender
	channelID string
	maxItems  int
	log       *logging.Logger
}

// NewDiscord creates a Discord notifier for a bot token
func NewDiscord(token, channelID string, maxItems int, log *logging.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID, maxItems: maxItems, log: log.With("notify")}, nil
}

// Notify sends one message with the formatted summary
func (d *Discord) Notify(ctx context.Context, items []types.ActionItem) error {
	if len(items) == 0 {
		return nil
	}
	title, body := Format(items, d.maxItems)
	content := fmt.Sprintf("**%s**\n```\n%s\n```", title, body)

	if _, err := d.session.ChannelMessageSend(d.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to post to Discord channel %s: %w", d.channelID, err)
	}
	d.log.Info("Posted %d action items to Discord", len(items))
	return nil
}
