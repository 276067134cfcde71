package chat

import "time"

// Snapshot captures the observable state of a conversation at one point in time.
type Snapshot struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	Draft         string    `json:"draft"`
	Composing     bool      `json:"composing"`
	CanSubmit     bool      `json:"canSubmit"`
	InputDisabled bool      `json:"inputDisabled"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EventType names a pushed state change.
type EventType string

const (
	EventMessage   EventType = "message"
	EventComposing EventType = "composing"
	EventClosed    EventType = "closed"
)

// Event is delivered to session subscribers.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Message   *Message  `json:"message,omitempty"`
	Composing bool      `json:"composing"`
}
