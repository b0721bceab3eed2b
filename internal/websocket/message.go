package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewEventMessage marshals an activity-feed push for a client.
func NewEventMessage(payload interface{}) []byte {
	b, _ := json.Marshal(Message{Action: "event", Payload: payload})
	return b
}

// NewErrorMessage marshals an error push for a client.
func NewErrorMessage(msg string) []byte {
	b, _ := json.Marshal(Message{Action: "error", Payload: msg})
	return b
}
