// Package collab runs the realtime collaboration channel: per-project
// rooms over WebSocket carrying presence, cursors, selections, camera
// poses, and edit notifications between viewers of the same project.
package collab

import "encoding/json"

// MessageType tags a collaboration message.
type MessageType string

const (
	// MessagePresence announces the room roster. Sent by the hub to
	// every participant whenever someone joins or leaves.
	MessagePresence MessageType = "presence"
	// MessageCursor carries a participant's 3D cursor position.
	MessageCursor MessageType = "cursor"
	// MessageSelect carries a participant's current selection.
	MessageSelect MessageType = "select"
	// MessageEdit announces that a participant changed persisted data;
	// receivers refetch and rebuild their scene.
	MessageEdit MessageType = "edit"
	// MessageCamera carries a participant's camera pose for follow mode.
	MessageCamera MessageType = "camera"
)

// Message is the wire envelope for all collaboration traffic. The hub
// stamps UserID and Color on relayed messages so clients cannot spoof
// each other.
type Message struct {
	Type      MessageType     `json:"type"`
	ProjectID string          `json:"project_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	UserName  string          `json:"user_name,omitempty"`
	Color     string          `json:"color,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Participant is one connected viewer in a room.
type Participant struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Color    string `json:"color"`
}

// PresencePayload is the payload of a presence message.
type PresencePayload struct {
	Participants []Participant `json:"participants"`
}
