// Package notify delivers fire-and-forget notifications to players. Delivery
// happens on background workers and never affects the operation that caused it.
package notify

import (
	"context"
	"time"
)

// Kind tags what a notification is about
type Kind string

const (
	KindTheftVictim Kind = "theft_victim"
	KindTheftFoiled Kind = "theft_foiled"
	KindRoleChanged Kind = "role_changed"
	KindTransferIn  Kind = "transfer_received"
	KindBroadcast   Kind = "broadcast"
)

// Notification is one message for one recipient. RecipientID zero addresses everyone.
type Notification struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	RecipientID int64     `json:"recipient_id,omitempty"`
	SenderID    int64     `json:"sender_id,omitempty"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsBroadcast reports whether the notification addresses everyone
func (n Notification) IsBroadcast() bool {
	return n.RecipientID == 0
}

// Sender is a delivery sink
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
