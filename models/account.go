package models

import (
	"time"
)

// Account represents an actor's cash and bank holdings
type Account struct {
	ActorID       int64     `db:"actor_id"`
	Username      string    `db:"username"`
	Cash          int64     `db:"cash"` // exposed to theft
	Bank          int64     `db:"bank"` // theft-immune
	BankName      string    `db:"bank_name"`
	SecurityLevel int       `db:"security_level"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Total returns cash plus bank
func (a *Account) Total() int64 {
	return a.Cash + a.Bank
}

// Protection returns the theft protection percentage of the account's security level
func (a *Account) Protection() int {
	level, ok := SecurityLevelFor(a.SecurityLevel)
	if !ok {
		return 0
	}
	return level.Protection
}

// LeaderboardEntry is one row of the richest players leaderboard
type LeaderboardEntry struct {
	Rank     int
	ActorID  int64
	Username string
	Cash     int64
	Bank     int64
	Total    int64
}
