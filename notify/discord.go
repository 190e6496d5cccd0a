package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// discordAPI is the part of *discordgo.Session the sender needs
type discordAPI interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSender delivers direct messages, and broadcasts to an announcement channel
type DiscordSender struct {
	api               discordAPI
	announceChannelID string
}

// NewDiscordSender creates a sender over a Discord session. An empty
// announceChannelID skips broadcasts.
func NewDiscordSender(api discordAPI, announceChannelID string) *DiscordSender {
	return &DiscordSender{api: api, announceChannelID: announceChannelID}
}

func (s *DiscordSender) Name() string {
	return "discord"
}

func (s *DiscordSender) Send(ctx context.Context, n Notification) error {
	if n.IsBroadcast() {
		if s.announceChannelID == "" {
			return nil
		}
		if _, err := s.api.ChannelMessageSend(s.announceChannelID, n.Text, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to post announcement: %w", err)
		}
		return nil
	}

	channel, err := s.api.UserChannelCreate(strconv.FormatInt(n.RecipientID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %d: %w", n.RecipientID, err)
	}
	if _, err := s.api.ChannelMessageSend(channel.ID, n.Text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send DM to %d: %w", n.RecipientID, err)
	}
	return nil
}
