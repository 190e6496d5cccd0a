package bot

import (
	"github.com/bwmarrin/discordgo"
)

// DisplayName returns the server-specific display name for a message author.
// Falls back to the global name, then the username.
func DisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author == nil {
		return "Unknown"
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
