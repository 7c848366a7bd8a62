package mentoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Broadcaster pushes an event to every connection subscribed to a session.
// Best-effort: delivery failures are isolated per recipient and never
// surface to the caller.
type Broadcaster interface {
	BroadcastToSession(sessionID uuid.UUID, event interface{})
}

// EscalationNotifier forwards escalation events to an external on-call
// channel. Optional; failures are logged, never propagated.
type EscalationNotifier interface {
	Notify(ctx context.Context, eventType string, payload interface{})
}

type Service struct {
	sessions    SessionRepository
	messages    MessageRepository
	profiles    ProfileRepository
	escalations EscalationRepository
	detector    Detector
	broadcaster Broadcaster
	notifier    EscalationNotifier
	logger      zerolog.Logger
}

func NewService(
	sessions SessionRepository,
	messages MessageRepository,
	profiles ProfileRepository,
	escalations EscalationRepository,
	detector Detector,
	broadcaster Broadcaster,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessions:    sessions,
		messages:    messages,
		profiles:    profiles,
		escalations: escalations,
		detector:    detector,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// SetEscalationNotifier attaches an optional external notifier.
func (s *Service) SetEscalationNotifier(n EscalationNotifier) {
	s.notifier = n
}

// -- Access Control Gate --

// ResolveAccess decides whether the principal may use the session and, if so,
// resolves the role and durable member id stamped on anything the principal
// sends. Client-supplied sender fields are never consulted.
func (s *Service) ResolveAccess(ctx context.Context, sessionID uuid.UUID, p Principal) (*Access, error) {
	_, access, err := s.resolveSession(ctx, sessionID, p)
	return access, err
}

// resolveSession fetches the session and both participant profiles, then
// applies the access rule: an authenticated user must match the student's or
// mentor's linked user id; an anonymous caller must present the session's
// student profile id and that profile must be flagged anonymous.
func (s *Service) resolveSession(ctx context.Context, sessionID uuid.UUID, p Principal) (*sessionParticipants, *Access, error) {
	if p.IsZero() {
		return nil, nil, ErrForbidden
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}

	student, err := s.profiles.GetStudent(ctx, sess.StudentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load student profile: %w", err)
	}
	mentor, err := s.profiles.GetMentor(ctx, sess.MentorID)
	if err != nil {
		return nil, nil, fmt.Errorf("load mentor profile: %w", err)
	}

	parts := &sessionParticipants{session: sess, student: student, mentor: mentor}

	if p.UserID != "" {
		if student.UserID != nil && *student.UserID == p.UserID {
			return parts, &Access{Role: RoleStudent, MemberID: student.ID, DisplayName: student.DisplayName}, nil
		}
		if mentor.UserID == p.UserID {
			return parts, &Access{Role: RoleMentor, MemberID: mentor.ID, DisplayName: mentor.DisplayName}, nil
		}
		return nil, nil, ErrForbidden
	}

	if p.AnonymousStudentID == sess.StudentID && student.IsAnonymous {
		return parts, &Access{Role: RoleStudent, MemberID: student.ID, DisplayName: student.DisplayName}, nil
	}

	return nil, nil, ErrForbidden
}

type sessionParticipants struct {
	session *Session
	student *StudentProfile
	mentor  *MentorProfile
}

func (sp *sessionParticipants) displayName(senderType string) string {
	if senderType == RoleMentor {
		return sp.mentor.DisplayName
	}
	return sp.student.DisplayName
}

// -- Message Ingestion & Fan-out --

// SendMessageInput deliberately has no sender fields: sender identity is
// always resolved server-side from the principal and session membership.
type SendMessageInput struct {
	Content     string   `json:"content"`
	MessageType string   `json:"message_type"`
	Attachments []string `json:"attachments"`
	IsEncrypted bool     `json:"is_encrypted"`
}

// SendMessage validates and persists an inbound message, bumps session
// freshness, fans the message out to subscribers, and runs crisis detection.
// Detection runs synchronously on every message before returning.
func (s *Service) SendMessage(ctx context.Context, sessionID uuid.UUID, p Principal, in SendMessageInput) (*MessageView, error) {
	if in.MessageType == "" {
		in.MessageType = MessageTypeText
	}
	if !validMessageTypes[in.MessageType] {
		return nil, &ValidationError{Field: "message_type", Reason: "invalid message type: " + in.MessageType}
	}
	if strings.TrimSpace(in.Content) == "" && len(in.Attachments) == 0 {
		return nil, &ValidationError{Field: "content", Reason: "content or attachments required"}
	}

	_, access, err := s.resolveSession(ctx, sessionID, p)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		SessionID:   sessionID,
		SenderID:    access.MemberID,
		SenderType:  access.Role,
		MessageType: in.MessageType,
		Content:     in.Content,
		Attachments: in.Attachments,
		IsEncrypted: in.IsEncrypted,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// Freshness bump is a second, independent write; a crash between the two
	// leaves updated_at stale. Accepted: it is a recency signal, not a
	// correctness-critical field.
	if err := s.sessions.Touch(ctx, sessionID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("session freshness bump failed")
	}

	view := &MessageView{Message: *msg, SenderName: access.DisplayName}
	s.broadcaster.BroadcastToSession(sessionID, newMessageEvent(view))

	s.runDetection(ctx, sessionID, msg)

	return view, nil
}

// runDetection scans the message and, on a crisis match, escalates the
// session, records a durable escalation event, and broadcasts the safety
// notice. Every failure in here is logged and swallowed: the original
// message is already persisted and acknowledged.
func (s *Service) runDetection(ctx context.Context, sessionID uuid.UUID, msg *Message) {
	det := s.detector.Scan(msg.Content)
	if !det.IsEmergency {
		return
	}

	log := s.logger.With().Str("session_id", sessionID.String()).Logger()
	log.Warn().Strs("matched_terms", det.MatchedTerms).Msg("crisis language detected")

	escalated, err := s.sessions.Escalate(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("session escalation failed")
	}

	ev := &EscalationEvent{
		SessionID:        sessionID,
		MatchedTerms:     det.MatchedTerms,
		Severity:         "critical",
		ActionTaken:      "session_escalated",
		ResolutionStatus: "open",
	}
	if !escalated {
		// Session was already escalated or closed; the event is still recorded.
		ev.ActionTaken = "already_escalated"
	}
	if err := s.escalations.Create(ctx, ev); err != nil {
		log.Error().Err(err).Msg("escalation event write failed")
	}

	s.broadcaster.BroadcastToSession(sessionID, emergencyAlertEvent(sessionID))

	if s.notifier != nil {
		// Delivery retries must not hold up the sender's response. The
		// request context is also about to die, so the dispatch runs on a
		// detached deadline-bound context.
		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			s.notifier.Notify(nctx, "session.escalated", ev)
		}()
	}
}

// SessionMessages returns the session's messages in sent order and, as a side
// effect, marks every message not authored by the caller as read. Re-marking
// already-read messages is a no-op.
func (s *Service) SessionMessages(ctx context.Context, sessionID uuid.UUID, p Principal, limit, offset int) ([]*MessageView, int, error) {
	parts, access, err := s.resolveSession(ctx, sessionID, p)
	if err != nil {
		return nil, 0, err
	}

	msgs, total, err := s.messages.ListBySession(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	if _, err := s.messages.MarkRead(ctx, sessionID, access.MemberID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("mark-read failed")
	}

	views := make([]*MessageView, len(msgs))
	for i, m := range msgs {
		views[i] = &MessageView{Message: *m, SenderName: parts.displayName(m.SenderType)}
	}
	return views, total, nil
}

// -- Unread Aggregator --

// UnreadCount reports unread messages across every session the principal
// participates in. Consistent with SessionMessages' mark-read side effect:
// after a full fetch, a session contributes zero.
func (s *Service) UnreadCount(ctx context.Context, p Principal) (*UnreadSummary, error) {
	profileID, err := s.resolveProfileID(ctx, p)
	if err != nil {
		return nil, err
	}
	summary, err := s.messages.CountUnread(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	return summary, nil
}

// resolveProfileID maps a principal onto its durable profile id.
func (s *Service) resolveProfileID(ctx context.Context, p Principal) (uuid.UUID, error) {
	if p.IsZero() {
		return uuid.Nil, ErrForbidden
	}

	if p.IsAnonymous() {
		student, err := s.profiles.GetStudent(ctx, p.AnonymousStudentID)
		if err != nil {
			return uuid.Nil, err
		}
		if !student.IsAnonymous {
			// A linked profile id is not a usable anonymous credential.
			return uuid.Nil, ErrForbidden
		}
		return student.ID, nil
	}

	if student, err := s.profiles.GetStudentByUser(ctx, p.UserID); err == nil {
		return student.ID, nil
	} else if !errors.Is(err, ErrProfileNotFound) {
		return uuid.Nil, err
	}
	mentor, err := s.profiles.GetMentorByUser(ctx, p.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	return mentor.ID, nil
}

// -- Session Lifecycle --

type CreateSessionInput struct {
	CategoryID  *uuid.UUID `json:"category_id"`
	SessionType string     `json:"session_type"`
}

// CreateSession pairs the calling student with an available, verified mentor.
func (s *Service) CreateSession(ctx context.Context, p Principal, in CreateSessionInput) (*Session, error) {
	if in.SessionType == "" {
		in.SessionType = SessionTypeChat
	}
	if !validSessionTypes[in.SessionType] {
		return nil, &ValidationError{Field: "session_type", Reason: "invalid session type: " + in.SessionType}
	}

	studentID, err := s.resolveStudentID(ctx, p)
	if err != nil {
		return nil, err
	}

	mentor, err := s.profiles.FindAvailableMentor(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		StudentID:   studentID,
		MentorID:    mentor.ID,
		CategoryID:  in.CategoryID,
		SessionType: in.SessionType,
		Status:      SessionActive,
		Priority:    PriorityNormal,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *Service) resolveStudentID(ctx context.Context, p Principal) (uuid.UUID, error) {
	if p.IsZero() {
		return uuid.Nil, ErrForbidden
	}
	if p.IsAnonymous() {
		student, err := s.profiles.GetStudent(ctx, p.AnonymousStudentID)
		if err != nil {
			return uuid.Nil, err
		}
		if !student.IsAnonymous {
			return uuid.Nil, ErrForbidden
		}
		return student.ID, nil
	}
	student, err := s.profiles.GetStudentByUser(ctx, p.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	return student.ID, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID, p Principal) (*Session, error) {
	parts, _, err := s.resolveSession(ctx, sessionID, p)
	if err != nil {
		return nil, err
	}
	return parts.session, nil
}

func (s *Service) ListSessions(ctx context.Context, p Principal, limit, offset int) ([]*Session, int, error) {
	profileID, err := s.resolveProfileID(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	return s.sessions.ListByParticipant(ctx, profileID, limit, offset)
}

// CompleteSession closes a session with its one-time rating and feedback.
// Either participant may complete; an already-closed session is rejected.
func (s *Service) CompleteSession(ctx context.Context, sessionID uuid.UUID, p Principal, rating *int, feedback *string) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return &ValidationError{Field: "rating", Reason: "rating must be between 1 and 5"}
	}
	if _, _, err := s.resolveSession(ctx, sessionID, p); err != nil {
		return err
	}
	return s.sessions.Close(ctx, sessionID, SessionCompleted, rating, feedback)
}

// TerminateSession closes a session without rating.
func (s *Service) TerminateSession(ctx context.Context, sessionID uuid.UUID, p Principal) error {
	if _, _, err := s.resolveSession(ctx, sessionID, p); err != nil {
		return err
	}
	return s.sessions.Close(ctx, sessionID, SessionTerminated, nil, nil)
}

// -- Profiles --

// CreateAnonymousStudent onboards a student with no linked account. The
// returned profile id is the student's credential for everything else.
func (s *Service) CreateAnonymousStudent(ctx context.Context, displayName string) (*StudentProfile, error) {
	if strings.TrimSpace(displayName) == "" {
		displayName = "Anonymous Student"
	}
	p := &StudentProfile{DisplayName: displayName, IsAnonymous: true}
	if err := s.profiles.CreateStudent(ctx, p); err != nil {
		return nil, fmt.Errorf("create student profile: %w", err)
	}
	return p, nil
}

// CreateStudent onboards an authenticated student.
func (s *Service) CreateStudent(ctx context.Context, userID, displayName string) (*StudentProfile, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, &ValidationError{Field: "display_name", Reason: "display_name is required"}
	}
	p := &StudentProfile{UserID: &userID, DisplayName: displayName}
	if err := s.profiles.CreateStudent(ctx, p); err != nil {
		return nil, fmt.Errorf("create student profile: %w", err)
	}
	return p, nil
}

// CreateMentor onboards a mentor. Mentors start unverified and unavailable;
// verification is an administrative action.
func (s *Service) CreateMentor(ctx context.Context, userID, displayName string, specialty *string, categoryID *uuid.UUID) (*MentorProfile, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, &ValidationError{Field: "display_name", Reason: "display_name is required"}
	}
	p := &MentorProfile{UserID: userID, DisplayName: displayName, Specialty: specialty, CategoryID: categoryID}
	if err := s.profiles.CreateMentor(ctx, p); err != nil {
		return nil, fmt.Errorf("create mentor profile: %w", err)
	}
	return p, nil
}

// SetAvailability toggles the calling mentor's availability for new sessions.
func (s *Service) SetAvailability(ctx context.Context, userID string, available bool) error {
	mentor, err := s.profiles.GetMentorByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.profiles.SetMentorAvailability(ctx, mentor.ID, available)
}

// -- Escalation Review --

// ListEscalations returns escalation events for review. Restricted to
// mentors: the caller must resolve to a mentor profile.
func (s *Service) ListEscalations(ctx context.Context, p Principal, limit, offset int) ([]*EscalationEvent, int, error) {
	if p.UserID == "" {
		return nil, 0, ErrForbidden
	}
	if _, err := s.profiles.GetMentorByUser(ctx, p.UserID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, 0, ErrForbidden
		}
		return nil, 0, err
	}
	return s.escalations.List(ctx, limit, offset)
}

// SessionEscalations returns the escalation history of one session.
// Restricted to the session's mentor.
func (s *Service) SessionEscalations(ctx context.Context, sessionID uuid.UUID, p Principal, limit, offset int) ([]*EscalationEvent, int, error) {
	_, access, err := s.resolveSession(ctx, sessionID, p)
	if err != nil {
		return nil, 0, err
	}
	if access.Role != RoleMentor {
		return nil, 0, ErrForbidden
	}
	return s.escalations.ListBySession(ctx, sessionID, limit, offset)
}
