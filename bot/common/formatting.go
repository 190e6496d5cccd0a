package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatBalance formats a balance amount with thousand separators
func FormatBalance(balance int64) string {
	if balance < 0 {
		return "-" + FormatBalance(-balance)
	}
	str := strconv.FormatInt(balance, 10)

	// Add commas for thousands
	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatSigned formats a ledger amount with an explicit sign
func FormatSigned(amount int64) string {
	if amount > 0 {
		return "+" + FormatBalance(amount)
	}
	return FormatBalance(amount)
}

// FormatTransferResult formats the result of a transfer
func FormatTransferResult(amount int64, recipientID int64, senderCash int64) string {
	return fmt.Sprintf("✅ Sent **%s** to %s. Cash left: **%s**",
		FormatBalance(amount), Mention(recipientID), FormatBalance(senderCash))
}

// Mention renders a user mention
func Mention(actorID int64) string {
	return fmt.Sprintf("<@%d>", actorID)
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}
