package common

import (
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// MaxMessageLength is Discord's limit for message content
const MaxMessageLength = 2000

// MessageSender is the part of the Discord session used to reply
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Reply answers a message in its channel, splitting content over the length limit.
// Only the first chunk references the original message.
func Reply(s MessageSender, m *discordgo.Message, content string) error {
	for i, chunk := range SplitMessage(content, MaxMessageLength) {
		data := &discordgo.MessageSend{
			Content:         chunk,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}
		if i == 0 {
			data.Reference = m.Reference()
		}
		if _, err := s.ChannelMessageSendComplex(m.ChannelID, data); err != nil {
			return err
		}
	}
	return nil
}

// ReplyWithError sends an error message and logs delivery failures
func ReplyWithError(s MessageSender, m *discordgo.Message, message string) {
	if err := Reply(s, m, "❌ "+message); err != nil {
		log.WithFields(log.Fields{
			"channelID": m.ChannelID,
			"error":     err,
		}).Error("Error sending error reply")
	}
}

// SplitMessage breaks content into chunks of at most limit runes, preferring line breaks
func SplitMessage(content string, limit int) []string {
	if content == "" {
		return nil
	}
	var chunks []string
	for utf8.RuneCountInString(content) > limit {
		cut := runeOffset(content, limit)
		if nl := strings.LastIndexByte(content[:cut], '\n'); nl > 0 {
			chunks = append(chunks, content[:nl])
			content = content[nl+1:]
			continue
		}
		chunks = append(chunks, content[:cut])
		content = strings.TrimPrefix(content[cut:], "\n")
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}

// runeOffset returns the byte offset of the n-th rune
func runeOffset(s string, n int) int {
	i := 0
	for offset := range s {
		if i == n {
			return offset
		}
		i++
	}
	return len(s)
}
