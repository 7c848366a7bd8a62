package mentoring

import "github.com/google/uuid"

// Push events broadcast to session subscribers over the live channel. The
// fetch path is ground truth; these are a low-latency accelerant.

type NewMessageEvent struct {
	Type    string       `json:"type"`
	Message *MessageView `json:"message"`
}

func newMessageEvent(v *MessageView) NewMessageEvent {
	return NewMessageEvent{Type: "new_message", Message: v}
}

type EmergencyAlertEvent struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"sessionId"`
	Message   string    `json:"message"`
}

func emergencyAlertEvent(sessionID uuid.UUID) EmergencyAlertEvent {
	return EmergencyAlertEvent{
		Type:      "emergency_alert",
		SessionID: sessionID,
		Message:   CrisisSupportNotice,
	}
}
