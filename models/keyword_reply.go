package models

import "time"

// KeywordReply is a scripted response to a trigger word. A nil ScopeID is bot-wide.
type KeywordReply struct {
	ID        int64     `db:"id"`
	Trigger   string    `db:"trigger"`
	ScopeID   *int64    `db:"scope_id"`
	Response  string    `db:"response"`
	AuthorID  int64     `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
}

// IsGlobal reports whether the reply applies in every scope
func (k *KeywordReply) IsGlobal() bool {
	return k.ScopeID == nil
}
