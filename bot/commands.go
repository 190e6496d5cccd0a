package bot

import (
	"context"
	"strings"
)

type commandHelp struct {
	usage       string
	description string
}

// helpEntries is shown by the help command, in display order
var helpEntries = []commandHelp{
	{"open account", "Open a bank account"},
	{"balance", "Show your cash, bank and security"},
	{"deposit [amount]", "Move cash into the bank"},
	{"withdraw [amount]", "Move money from the bank to cash"},
	{"transfer [@user] [amount]", "Send cash to another player"},
	{"salary", "Collect your daily salary"},
	{"rob [@user]", "Try to steal cash from another player"},
	{"security", "Show security levels and upgrade costs"},
	{"upgrade security", "Buy the next security level"},
	{"stats [@user]", "Show theft statistics"},
	{"top thieves", "Most successful thieves"},
	{"leaderboard", "Richest players"},
	{"history", "Your latest transactions"},
	{"property / stocks / invest / castle", "Buy properties, shares, investments or fortifications"},
	{"farm [crop]", "Plant crops"},
	{"promote|demote moderator|owner [@user]", "Manage roles in this server"},
	{"admins", "List the admins of this server"},
	{"my permissions", "Show what you are allowed to do"},
	{"add reply", "Teach the bot a custom reply"},
	{"replies [global]", "List custom replies"},
	{"broadcast", "Send an announcement to every player"},
	{"cancel", "Stop the current guided action"},
}

// commandTable maps every command name and alias to its handler
func (d *Dispatcher) commandTable() map[string]commandFunc {
	table := map[string]commandFunc{
		"help": d.helpCommand,

		"open account": d.openAccountCommand,
		"balance":      d.balanceCommand,
		"deposit":      d.depositCommand,
		"withdraw":     d.withdrawCommand,
		"transfer":     d.transferCommand,
		"salary":       d.salaryCommand,
		"rob":          d.robCommand,
		"steal":        d.robCommand,

		"security":         d.securityOptionsCommand,
		"upgrade security": d.upgradeSecurityCommand,

		"stats":       d.statsCommand,
		"top thieves": d.topThievesCommand,
		"leaderboard": d.leaderboardCommand,
		"history":     d.historyCommand,

		"property": d.propertyCommand,
		"stocks":   d.stocksCommand,
		"invest":   d.investCommand,
		"farm":     d.farmCommand,
		"castle":   d.castleCommand,

		"promote moderator": d.roleCommand(actionGrantModerator),
		"demote moderator":  d.roleCommand(actionRevokeModerator),
		"promote owner":     d.roleCommand(actionGrantOwner),
		"demote owner":      d.roleCommand(actionRevokeOwner),
		"admins":            d.adminsCommand,
		"my permissions":    d.capabilitiesCommand,
		"add reply":         d.addReplyCommand,
		"replies":           d.listRepliesCommand,
		"broadcast":         d.broadcastCommand,
		"cancel":            d.cancelCommand,
	}

	aliases := map[string]string{
		"فتح حساب":      "open account",
		"رصيدي":         "balance",
		"ايداع":         "deposit",
		"سحب":           "withdraw",
		"تحويل":         "transfer",
		"راتب":          "salary",
		"سرقة":          "rob",
		"الحماية":       "security",
		"ترقية الحماية": "upgrade security",
		"اكبر الحرامية": "top thieves",
		"التوب":         "leaderboard",
		"عقار":          "property",
		"اسهم":          "stocks",
		"استثمار":       "invest",
		"مزرعة":         "farm",
		"قلعة":          "castle",
		"المشرفين":      "admins",
		"اضف رد":        "add reply",
		"الردود":        "replies",
		"اذاعة":         "broadcast",
		"الغاء":         "cancel",
		"إلغاء":         "cancel",
	}
	for alias, name := range aliases {
		table[alias] = table[name]
	}
	return table
}

func (d *Dispatcher) helpCommand(ctx context.Context, msg Message, args []string) (string, error) {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	for _, entry := range helpEntries {
		b.WriteString("`" + entry.usage + "` " + entry.description + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) cancelCommand(ctx context.Context, msg Message, args []string) (string, error) {
	// An active session is cancelled by the state machine before commands run
	if d.conversations.Cancel(msg.ActorID, msg.ScopeID) {
		return "Cancelled.", nil
	}
	return "Nothing to cancel.", nil
}
