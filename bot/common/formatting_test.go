package common

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-25000, "-25,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBalance(tt.in))
	}
	assert.Equal(t, "+1,500", FormatSigned(1500))
	assert.Equal(t, "-40", FormatSigned(-40))
}

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, SplitMessage("", 10))
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	// Prefers line breaks
	assert.Equal(t, []string{"aaaa", "bbbb"}, SplitMessage("aaaa\nbbbb", 6))

	// Hard cut when a line is too long, counted in runes
	chunks := SplitMessage(strings.Repeat("م", 25), 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("م", 10), chunks[0])
	assert.Equal(t, strings.Repeat("م", 5), chunks[2])
}

type recordingSender struct {
	sent []*discordgo.MessageSend
}

func (r *recordingSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.sent = append(r.sent, data)
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}

func TestReply(t *testing.T) {
	sender := &recordingSender{}
	original := &discordgo.Message{ID: "55", ChannelID: "7", GuildID: "10"}

	content := strings.Repeat("x", MaxMessageLength) + "\n" + "tail"
	require.NoError(t, Reply(sender, original, content))

	require.Len(t, sender.sent, 2)
	require.NotNil(t, sender.sent[0].Reference)
	assert.Equal(t, "55", sender.sent[0].Reference.MessageID)
	assert.Nil(t, sender.sent[1].Reference)
	assert.Equal(t, "tail", sender.sent[1].Content)
}
