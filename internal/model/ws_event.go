package model

import "encoding/json"

// Realtime event types.
const (
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventPing           = "ping"
	EventPong           = "pong"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewWSEvent encodes data as the payload of an event of the given type.
func NewWSEvent(eventType string, data any) (*WSEvent, error) {
	if data == nil {
		return &WSEvent{Type: eventType}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSEvent{Type: eventType, Data: raw}, nil
}

// OutboundMessage is the flat sendMessage payload.
type OutboundMessage struct {
	RoomID string `json:"roomId"`
	ChatMessage
}

// InboundMessage is the receiveMessage payload.
type InboundMessage struct {
	RoomID  string       `json:"roomId"`
	Message *ChatMessage `json:"message"`
}

type WSAnnounce struct {
	RoomID string `json:"roomId"`
	Tag    string `json:"tag"`
	Text   string `json:"text"`
}
