package bot

import (
	"context"
	"fmt"
	"strings"

	"heist/bot/common"
	"heist/conversation"
)

const (
	leaderboardSize = 10
	historySize     = 10
)

// statsCommand shows theft counters for the actor or the mentioned user
func (d *Dispatcher) statsCommand(ctx context.Context, msg Message, args []string) (string, error) {
	actorID := msg.ActorID
	if len(args) > 0 {
		id, err := conversation.ParseUserID(args[0])
		if err != nil {
			return "", err
		}
		actorID = id
	}

	stats, err := d.stats.TheftStats(ctx, actorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🕵️ Theft stats for %s\nSuccessful: %d\nFailed: %d\nTimes robbed: %d\nSuccess rate: %.1f%%",
		common.Mention(actorID), stats.Successful, stats.Failed, stats.Victimized, stats.SuccessRate()), nil
}

func (d *Dispatcher) topThievesCommand(ctx context.Context, msg Message, args []string) (string, error) {
	entries, err := d.stats.TopThieves(ctx, leaderboardSize)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No successful thefts yet.", nil
	}

	var b strings.Builder
	b.WriteString("🦹 **Top thieves**\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s %s: %d successful\n", rankLabel(entry.Rank), entry.Username, entry.Successful)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) leaderboardCommand(ctx context.Context, msg Message, args []string) (string, error) {
	entries, err := d.stats.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No accounts yet.", nil
	}

	var b strings.Builder
	b.WriteString("🏆 **Richest players**\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s %s: %s\n", rankLabel(entry.Rank), entry.Username, common.FormatBalance(entry.Total))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) historyCommand(ctx context.Context, msg Message, args []string) (string, error) {
	records, err := d.ledger.History(ctx, msg.ActorID, historySize)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "No transactions yet.", nil
	}

	var b strings.Builder
	b.WriteString("📜 **Latest transactions**\n")
	for _, record := range records {
		fmt.Fprintf(&b, "%s `%s` %s\n",
			common.FormatDiscordTimestamp(record.CreatedAt, "f"),
			common.FormatSigned(record.Amount),
			record.Description)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// rankLabel formats rank with medal for top 3
func rankLabel(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("#%d", rank)
	}
}
