package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestToMessage(t *testing.T) {
	tests := []struct {
		name   string
		event  *discordgo.MessageCreate
		want   Message
		wantOK bool
	}{
		{
			name: "guild message uses the nickname",
			event: &discordgo.MessageCreate{Message: &discordgo.Message{
				GuildID: "10",
				Content: "balance",
				Author:  &discordgo.User{ID: "1", Username: "alice_01", GlobalName: "Alice"},
				Member:  &discordgo.Member{Nick: "Ali"},
			}},
			want:   Message{ActorID: 1, ScopeID: 10, Username: "Ali", Text: "balance"},
			wantOK: true,
		},
		{
			name: "direct message has no scope",
			event: &discordgo.MessageCreate{Message: &discordgo.Message{
				Content: "salary",
				Author:  &discordgo.User{ID: "1", Username: "alice_01", GlobalName: "Alice"},
			}},
			want:   Message{ActorID: 1, Username: "Alice", Text: "salary"},
			wantOK: true,
		},
		{
			name: "falls back to the username",
			event: &discordgo.MessageCreate{Message: &discordgo.Message{
				Content: "hi",
				Author:  &discordgo.User{ID: "2", Username: "bob"},
			}},
			want:   Message{ActorID: 2, Username: "bob", Text: "hi"},
			wantOK: true,
		},
		{
			name: "bots are ignored",
			event: &discordgo.MessageCreate{Message: &discordgo.Message{
				Content: "balance",
				Author:  &discordgo.User{ID: "3", Bot: true},
			}},
		},
		{
			name: "malformed author is ignored",
			event: &discordgo.MessageCreate{Message: &discordgo.Message{
				Content: "balance",
				Author:  &discordgo.User{ID: "not-a-number"},
			}},
		},
		{
			name:  "missing author is ignored",
			event: &discordgo.MessageCreate{Message: &discordgo.Message{Content: "balance"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toMessage(tt.event)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
