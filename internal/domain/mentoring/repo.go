package mentoring

import (
	"context"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// Touch bumps the freshness timestamp. Deliberately a separate write from
	// message persistence; see the messaging service.
	Touch(ctx context.Context, id uuid.UUID) error
	// Escalate moves an active session to escalated/urgent. Returns false if
	// the session was not active (already escalated or closed); the
	// transition is monotonic.
	Escalate(ctx context.Context, id uuid.UUID) (bool, error)
	// Close moves a session to a terminal status, recording the one-time
	// rating and feedback. Returns ErrSessionClosed if already terminal.
	Close(ctx context.Context, id uuid.UUID, status string, rating *int, feedback *string) error
	ListByParticipant(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*Session, int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// ListBySession returns messages in sent order (oldest first).
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*Message, int, error)
	// MarkRead stamps read_at on every unread message in the session not
	// authored by readerID. Idempotent: already-read messages are untouched.
	MarkRead(ctx context.Context, sessionID, readerID uuid.UUID) (int64, error)
	// CountUnread aggregates unread messages across every session the
	// profile participates in.
	CountUnread(ctx context.Context, profileID uuid.UUID) (*UnreadSummary, error)
}

type ProfileRepository interface {
	CreateStudent(ctx context.Context, p *StudentProfile) error
	CreateMentor(ctx context.Context, p *MentorProfile) error
	GetStudent(ctx context.Context, id uuid.UUID) (*StudentProfile, error)
	GetMentor(ctx context.Context, id uuid.UUID) (*MentorProfile, error)
	GetStudentByUser(ctx context.Context, userID string) (*StudentProfile, error)
	GetMentorByUser(ctx context.Context, userID string) (*MentorProfile, error)
	SetMentorAvailability(ctx context.Context, mentorID uuid.UUID, available bool) error
	// FindAvailableMentor picks a verified, available mentor, preferring the
	// given category when set.
	FindAvailableMentor(ctx context.Context, categoryID *uuid.UUID) (*MentorProfile, error)
}

type EscalationRepository interface {
	Create(ctx context.Context, e *EscalationEvent) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*EscalationEvent, int, error)
	List(ctx context.Context, limit, offset int) ([]*EscalationEvent, int, error)
}
