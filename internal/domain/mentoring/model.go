package mentoring

import (
	"time"

	"github.com/google/uuid"
)

// Participant roles within a session. A sender's role is always derived from
// session membership, never taken from client input.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
)

// Session statuses. Completed and terminated are terminal; escalated is
// one-way and is never reverted by message traffic.
const (
	SessionActive     = "active"
	SessionCompleted  = "completed"
	SessionTerminated = "terminated"
	SessionEscalated  = "escalated"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	SessionTypeChat  = "chat"
	SessionTypeVoice = "voice"
	SessionTypeVideo = "video"
)

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeVoice  = "voice"
	MessageTypeSystem = "system"
)

var validSessionTypes = map[string]bool{
	SessionTypeChat: true, SessionTypeVoice: true, SessionTypeVideo: true,
}

var validMessageTypes = map[string]bool{
	MessageTypeText: true, MessageTypeImage: true, MessageTypeFile: true,
	MessageTypeVoice: true, MessageTypeSystem: true,
}

// Session maps to the mentoring_session table: one ongoing student–mentor
// conversation.
type Session struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	StudentID   uuid.UUID  `db:"student_id" json:"student_id"`
	MentorID    uuid.UUID  `db:"mentor_id" json:"mentor_id"`
	CategoryID  *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	SessionType string     `db:"session_type" json:"session_type"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	Rating      *int       `db:"rating" json:"rating,omitempty"`
	Feedback    *string    `db:"feedback" json:"feedback,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Message maps to the session_message table. Content is immutable after
// creation; read_at is set exactly once by the other participant's fetch.
type Message struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	SessionID   uuid.UUID  `db:"session_id" json:"session_id"`
	SenderID    uuid.UUID  `db:"sender_id" json:"sender_id"`
	SenderType  string     `db:"sender_type" json:"sender_type"`
	MessageType string     `db:"message_type" json:"message_type"`
	Content     string     `db:"content" json:"content"`
	Attachments []string   `db:"attachments" json:"attachments,omitempty"`
	IsEncrypted bool       `db:"is_encrypted" json:"is_encrypted"`
	SentAt      time.Time  `db:"sent_at" json:"sent_at"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
}

// MessageView is the message shape pushed to subscribers and returned by the
// API: the persisted message plus the sender's display name.
type MessageView struct {
	Message
	SenderName string `json:"sender_name"`
}

// StudentProfile maps to the student_profile table. Anonymous students have
// no linked user account; their profile id is their credential.
type StudentProfile struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	DisplayName string    `db:"display_name" json:"display_name"`
	IsAnonymous bool      `db:"is_anonymous" json:"is_anonymous"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MentorProfile maps to the mentor_profile table.
type MentorProfile struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	DisplayName string     `db:"display_name" json:"display_name"`
	Specialty   *string    `db:"specialty" json:"specialty,omitempty"`
	CategoryID  *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	IsVerified  bool       `db:"is_verified" json:"is_verified"`
	IsAvailable bool       `db:"is_available" json:"is_available"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// EscalationEvent maps to the escalation_event table. Append-only: created by
// the emergency detector, reviewed by humans out of band.
type EscalationEvent struct {
	ID               uuid.UUID `db:"id" json:"id"`
	SessionID        uuid.UUID `db:"session_id" json:"session_id"`
	MatchedTerms     []string  `db:"matched_terms" json:"matched_terms"`
	Severity         string    `db:"severity" json:"severity"`
	ActionTaken      string    `db:"action_taken" json:"action_taken"`
	ResolutionStatus string    `db:"resolution_status" json:"resolution_status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Principal is the resolved identity of a caller: either an authenticated
// user id or an anonymous student profile id. Anonymous students are
// first-class participants.
type Principal struct {
	UserID             string
	AnonymousStudentID uuid.UUID
}

func (p Principal) IsAnonymous() bool {
	return p.UserID == "" && p.AnonymousStudentID != uuid.Nil
}

func (p Principal) IsZero() bool {
	return p.UserID == "" && p.AnonymousStudentID == uuid.Nil
}

// Access is the outcome of the access-control gate: the caller's role in the
// session and the durable member id stamped on anything the caller sends.
type Access struct {
	Role        string
	MemberID    uuid.UUID
	DisplayName string
}

// UnreadSummary reports unread messages across all sessions a principal
// belongs to. SessionCount counts sessions with at least one unread message.
type UnreadSummary struct {
	Count        int `json:"count"`
	SessionCount int `json:"session_count"`
}
