package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Transport-level control events. Domain events (new messages, emergency
// alerts) are defined alongside the mentoring service that produces them.

type ConnectionEstablishedEvent struct {
	Type         string    `json:"type"`
	ConnectionID string    `json:"connectionId"`
	Timestamp    time.Time `json:"timestamp"`
}

func connectionEstablished(connID string) ConnectionEstablishedEvent {
	return ConnectionEstablishedEvent{
		Type:         "connection_established",
		ConnectionID: connID,
		Timestamp:    time.Now().UTC(),
	}
}

type JoinedSessionEvent struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"sessionId"`
	Message   string    `json:"message"`
}

func joinedSession(sessionID uuid.UUID) JoinedSessionEvent {
	return JoinedSessionEvent{
		Type:      "joined_session",
		SessionID: sessionID,
		Message:   "Successfully joined session",
	}
}

type TypingIndicatorEvent struct {
	Type         string    `json:"type"`
	SessionID    uuid.UUID `json:"sessionId"`
	IsTyping     bool      `json:"isTyping"`
	ConnectionID string    `json:"connectionId"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorEvent(msg string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: msg}
}

// ClientMessage is the inbound control frame. Unknown types are ignored.
type ClientMessage struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"sessionId"`
	IsTyping  bool      `json:"isTyping"`
}
