package domain

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser marks text typed by the user.
	SenderUser Sender = "user"
	// SenderBot marks model replies and companion prompts.
	SenderBot Sender = "bot"
	// SenderSystem marks out-of-band notices such as support resources.
	SenderSystem Sender = "system"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderBot, SenderSystem:
		return true
	}
	return false
}

// Role returns the label used when a message is rendered into summary context.
func (s Sender) Role() string {
	switch s {
	case SenderUser:
		return "User"
	case SenderSystem:
		return "System"
	default:
		return "Bot"
	}
}

// Message is a single append-only chat log entry.
// Seq is assigned by the store and defines the only meaningful order.
type Message struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}
