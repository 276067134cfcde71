package chat

import (
	"encoding/json"
	"time"
)

// Message is one entry of a chat transcript. Messages are never edited after
// they are appended.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsBot     bool      `json:"isBot"`
	Timestamp time.Time `json:"timestamp"`
}

// ClockFormat renders timestamps as local hour:minute.
const ClockFormat = "15:04"

// Clock returns the display form of the message timestamp.
func (m Message) Clock() string {
	return m.Timestamp.Local().Format(ClockFormat)
}

// MarshalJSON adds the display clock next to the raw timestamp.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return json.Marshal(struct {
		plain
		Time string `json:"time"`
	}{plain: plain(m), Time: m.Clock()})
}
