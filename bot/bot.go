package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"heist/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token          string
	HandlerTimeout time.Duration
}

type Bot struct {
	config     Config
	session    *discordgo.Session
	dispatcher *Dispatcher
}

// New creates the Discord session. The gateway connection is opened by Start
// so the session can be shared before messages flow.
func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Bot{
		config:  config,
		session: dg,
	}, nil
}

// Session exposes the Discord session for other components such as notification delivery
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start registers the message handler and connects to the gateway
func (b *Bot) Start(dispatcher *Dispatcher) error {
	b.dispatcher = dispatcher
	b.session.AddHandler(b.handleMessage)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// handleMessage routes every human message through the dispatcher
func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg, ok := toMessage(m)
	if !ok {
		return
	}

	ctx := context.Background()
	if b.config.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.HandlerTimeout)
		defer cancel()
	}

	reply := b.dispatcher.Handle(ctx, msg)
	if reply == "" {
		return
	}
	if err := common.Reply(s, m.Message, reply); err != nil {
		log.WithFields(log.Fields{
			"actorID":   msg.ActorID,
			"channelID": m.ChannelID,
			"error":     err,
		}).Error("Failed to send reply")
	}
}

// toMessage converts a gateway event, skipping bots and malformed IDs
func toMessage(m *discordgo.MessageCreate) (Message, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return Message{}, false
	}
	actorID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		log.WithField("authorID", m.Author.ID).Warn("Ignoring message with non-numeric author ID")
		return Message{}, false
	}
	var scopeID int64
	if m.GuildID != "" {
		scopeID, err = strconv.ParseInt(m.GuildID, 10, 64)
		if err != nil {
			log.WithField("guildID", m.GuildID).Warn("Ignoring message with non-numeric guild ID")
			return Message{}, false
		}
	}
	return Message{
		ActorID:  actorID,
		ScopeID:  scopeID,
		Username: DisplayName(m.Message),
		Text:     m.Content,
	}, true
}
