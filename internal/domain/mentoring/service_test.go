package mentoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repositories --

type mockSessionRepo struct {
	sessions map[uuid.UUID]*Session
	touched  int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, s *Session) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionRepo) Touch(_ context.Context, id uuid.UUID) error {
	if s, ok := m.sessions[id]; ok {
		s.UpdatedAt = time.Now()
		m.touched++
	}
	return nil
}

func (m *mockSessionRepo) Escalate(_ context.Context, id uuid.UUID) (bool, error) {
	s, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	if s.Status != SessionActive {
		return false, nil
	}
	s.Status = SessionEscalated
	s.Priority = PriorityUrgent
	return true, nil
}

func (m *mockSessionRepo) Close(_ context.Context, id uuid.UUID, status string, rating *int, feedback *string) error {
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Status != SessionActive && s.Status != SessionEscalated {
		return ErrSessionClosed
	}
	s.Status = status
	s.Rating = rating
	s.Feedback = feedback
	return nil
}

func (m *mockSessionRepo) ListByParticipant(_ context.Context, profileID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var out []*Session
	for _, s := range m.sessions {
		if s.StudentID == profileID || s.MentorID == profileID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

type mockMessageRepo struct {
	messages []*Message
}

func (m *mockMessageRepo) Create(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	msg.SentAt = time.Now()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMessageRepo) ListBySession(_ context.Context, sessionID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var out []*Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, len(out), nil
}

func (m *mockMessageRepo) MarkRead(_ context.Context, sessionID, readerID uuid.UUID) (int64, error) {
	var n int64
	now := time.Now()
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && msg.SenderID != readerID && msg.ReadAt == nil {
			msg.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *mockMessageRepo) CountUnread(_ context.Context, profileID uuid.UUID) (*UnreadSummary, error) {
	summary := &UnreadSummary{}
	seen := make(map[uuid.UUID]bool)
	for _, msg := range m.messages {
		if msg.SenderID == profileID || msg.ReadAt != nil {
			continue
		}
		summary.Count++
		if !seen[msg.SessionID] {
			seen[msg.SessionID] = true
			summary.SessionCount++
		}
	}
	return summary, nil
}

type mockProfileRepo struct {
	students map[uuid.UUID]*StudentProfile
	mentors  map[uuid.UUID]*MentorProfile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{
		students: make(map[uuid.UUID]*StudentProfile),
		mentors:  make(map[uuid.UUID]*MentorProfile),
	}
}

func (m *mockProfileRepo) CreateStudent(_ context.Context, p *StudentProfile) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.students[p.ID] = p
	return nil
}

func (m *mockProfileRepo) CreateMentor(_ context.Context, p *MentorProfile) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.mentors[p.ID] = p
	return nil
}

func (m *mockProfileRepo) GetStudent(_ context.Context, id uuid.UUID) (*StudentProfile, error) {
	p, ok := m.students[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (m *mockProfileRepo) GetMentor(_ context.Context, id uuid.UUID) (*MentorProfile, error) {
	p, ok := m.mentors[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (m *mockProfileRepo) GetStudentByUser(_ context.Context, userID string) (*StudentProfile, error) {
	for _, p := range m.students {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (m *mockProfileRepo) GetMentorByUser(_ context.Context, userID string) (*MentorProfile, error) {
	for _, p := range m.mentors {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (m *mockProfileRepo) SetMentorAvailability(_ context.Context, mentorID uuid.UUID, available bool) error {
	p, ok := m.mentors[mentorID]
	if !ok {
		return ErrProfileNotFound
	}
	p.IsAvailable = available
	return nil
}

func (m *mockProfileRepo) FindAvailableMentor(_ context.Context, categoryID *uuid.UUID) (*MentorProfile, error) {
	for _, p := range m.mentors {
		if p.IsVerified && p.IsAvailable {
			return p, nil
		}
	}
	return nil, ErrNoMentorAvailable
}

type mockEscalationRepo struct {
	events []*EscalationEvent
}

func (m *mockEscalationRepo) Create(_ context.Context, e *EscalationEvent) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.events = append(m.events, e)
	return nil
}

func (m *mockEscalationRepo) ListBySession(_ context.Context, sessionID uuid.UUID, limit, offset int) ([]*EscalationEvent, int, error) {
	var out []*EscalationEvent
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockEscalationRepo) List(_ context.Context, limit, offset int) ([]*EscalationEvent, int, error) {
	return m.events, len(m.events), nil
}

type mockBroadcaster struct {
	events []interface{}
}

func (m *mockBroadcaster) BroadcastToSession(_ uuid.UUID, event interface{}) {
	m.events = append(m.events, event)
}

func (m *mockBroadcaster) eventTypes() []string {
	var types []string
	for _, ev := range m.events {
		switch e := ev.(type) {
		case NewMessageEvent:
			types = append(types, e.Type)
		case EmergencyAlertEvent:
			types = append(types, e.Type)
		}
	}
	return types
}

// mockNotifier is safe for the concurrent dispatch the service uses; tests
// wait on the done channel before inspecting calls.
type mockNotifier struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{done: make(chan struct{}, 8)}
}

func (m *mockNotifier) Notify(_ context.Context, eventType string, _ interface{}) {
	m.mu.Lock()
	m.calls = append(m.calls, eventType)
	m.mu.Unlock()
	m.done <- struct{}{}
}

func (m *mockNotifier) waitForCall(t *testing.T) []string {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for escalation notification")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// blockingNotifier stands in for a delivery that hangs on an unreachable
// endpoint until released.
type blockingNotifier struct {
	release chan struct{}
}

func (n *blockingNotifier) Notify(ctx context.Context, _ string, _ interface{}) {
	select {
	case <-n.release:
	case <-ctx.Done():
	}
}

// -- Fixture --

type fixture struct {
	svc         *Service
	sessions    *mockSessionRepo
	messages    *mockMessageRepo
	profiles    *mockProfileRepo
	escalations *mockEscalationRepo
	broadcaster *mockBroadcaster

	session *Session
	student *StudentProfile
	mentor  *MentorProfile
}

// newFixture builds a service with one active session between a student and
// a mentor. When anonymous is true the student has no linked user account.
func newFixture(t *testing.T, anonymous bool) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		sessions:    newMockSessionRepo(),
		messages:    &mockMessageRepo{},
		profiles:    newMockProfileRepo(),
		escalations: &mockEscalationRepo{},
		broadcaster: &mockBroadcaster{},
	}
	f.svc = NewService(f.sessions, f.messages, f.profiles, f.escalations,
		NewKeywordDetector(), f.broadcaster, zerolog.Nop())

	f.student = &StudentProfile{DisplayName: "Alex", IsAnonymous: anonymous}
	if !anonymous {
		userID := "user-student"
		f.student.UserID = &userID
	}
	if err := f.profiles.CreateStudent(ctx, f.student); err != nil {
		t.Fatal(err)
	}

	f.mentor = &MentorProfile{
		UserID: "user-mentor", DisplayName: "Dr. Rivera",
		IsVerified: true, IsAvailable: true,
	}
	if err := f.profiles.CreateMentor(ctx, f.mentor); err != nil {
		t.Fatal(err)
	}

	f.session = &Session{
		StudentID:   f.student.ID,
		MentorID:    f.mentor.ID,
		SessionType: SessionTypeChat,
		Status:      SessionActive,
		Priority:    PriorityNormal,
	}
	if err := f.sessions.Create(ctx, f.session); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) studentPrincipal() Principal {
	if f.student.UserID != nil {
		return Principal{UserID: *f.student.UserID}
	}
	return Principal{AnonymousStudentID: f.student.ID}
}

func (f *fixture) mentorPrincipal() Principal {
	return Principal{UserID: f.mentor.UserID}
}

// -- Access Control --

func TestResolveAccessRoles(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	access, err := f.svc.ResolveAccess(ctx, f.session.ID, f.studentPrincipal())
	if err != nil {
		t.Fatalf("student access: %v", err)
	}
	if access.Role != RoleStudent || access.MemberID != f.student.ID {
		t.Errorf("student access = %+v", access)
	}

	access, err = f.svc.ResolveAccess(ctx, f.session.ID, f.mentorPrincipal())
	if err != nil {
		t.Fatalf("mentor access: %v", err)
	}
	if access.Role != RoleMentor || access.MemberID != f.mentor.ID {
		t.Errorf("mentor access = %+v", access)
	}
}

func TestResolveAccessDeniesThirdParty(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.svc.ResolveAccess(ctx, f.session.ID, Principal{UserID: "someone-else"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("third party got %v, want ErrForbidden", err)
	}
	if _, err := f.svc.ResolveAccess(ctx, f.session.ID, Principal{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("zero principal got %v, want ErrForbidden", err)
	}
	if _, err := f.svc.ResolveAccess(ctx, uuid.New(), f.studentPrincipal()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("missing session got %v, want ErrSessionNotFound", err)
	}
}

func TestResolveAccessAnonymousStudent(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	access, err := f.svc.ResolveAccess(ctx, f.session.ID, Principal{AnonymousStudentID: f.student.ID})
	if err != nil {
		t.Fatalf("anonymous access: %v", err)
	}
	if access.Role != RoleStudent {
		t.Errorf("role = %s, want student", access.Role)
	}

	// A random anonymous id is not the session's student.
	if _, err := f.svc.ResolveAccess(ctx, f.session.ID, Principal{AnonymousStudentID: uuid.New()}); !errors.Is(err, ErrForbidden) {
		t.Errorf("wrong anonymous id got %v, want ErrForbidden", err)
	}
}

func TestResolveAccessRejectsLinkedProfileAsAnonymous(t *testing.T) {
	// The student has a linked account, so presenting the profile id as an
	// anonymous credential must fail.
	f := newFixture(t, false)
	if _, err := f.svc.ResolveAccess(context.Background(), f.session.ID,
		Principal{AnonymousStudentID: f.student.ID}); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

// -- Message Ingestion --

func TestSendMessageStampsSenderFromMembership(t *testing.T) {
	f := newFixture(t, false)

	view, err := f.svc.SendMessage(context.Background(), f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if view.SenderID != f.student.ID || view.SenderType != RoleStudent {
		t.Errorf("sender = %s/%s, want %s/student", view.SenderID, view.SenderType, f.student.ID)
	}
	if view.SenderName != "Alex" {
		t.Errorf("SenderName = %q", view.SenderName)
	}
	if view.MessageType != MessageTypeText {
		t.Errorf("MessageType = %q, want default text", view.MessageType)
	}
	if f.sessions.touched != 1 {
		t.Errorf("session touched %d times, want 1", f.sessions.touched)
	}

	types := f.broadcaster.eventTypes()
	if len(types) != 1 || types[0] != "new_message" {
		t.Errorf("broadcast events = %v, want [new_message]", types)
	}
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	var ve *ValidationError
	if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "   "}); !errors.As(err, &ve) {
		t.Errorf("blank content got %v, want ValidationError", err)
	}
	if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "hi", MessageType: "carrier_pigeon"}); !errors.As(err, &ve) {
		t.Errorf("bad type got %v, want ValidationError", err)
	}

	// Attachments alone are enough.
	if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(),
		SendMessageInput{MessageType: MessageTypeImage, Attachments: []string{"img.png"}}); err != nil {
		t.Errorf("attachment-only message rejected: %v", err)
	}
}

func TestSendMessageForbiddenForOutsider(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.SendMessage(context.Background(), f.session.ID,
		Principal{UserID: "outsider"}, SendMessageInput{Content: "hi"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
	if len(f.messages.messages) != 0 {
		t.Error("message persisted despite forbidden sender")
	}
}

// -- Emergency Detection --

func TestCrisisMessageEscalatesSession(t *testing.T) {
	f := newFixture(t, false)
	notifier := newMockNotifier()
	f.svc.SetEscalationNotifier(notifier)

	view, err := f.svc.SendMessage(context.Background(), f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "I want to hurt myself"})
	if err != nil {
		t.Fatal(err)
	}
	if view == nil {
		t.Fatal("crisis message must still be delivered")
	}

	if f.session.Status != SessionEscalated {
		t.Errorf("status = %s, want escalated", f.session.Status)
	}
	if f.session.Priority != PriorityUrgent {
		t.Errorf("priority = %s, want urgent", f.session.Priority)
	}

	if len(f.escalations.events) != 1 {
		t.Fatalf("escalation events = %d, want 1", len(f.escalations.events))
	}
	ev := f.escalations.events[0]
	if ev.Severity != "critical" || ev.ActionTaken != "session_escalated" || ev.ResolutionStatus != "open" {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.MatchedTerms) == 0 {
		t.Error("event recorded no matched terms")
	}

	types := f.broadcaster.eventTypes()
	if len(types) != 2 || types[0] != "new_message" || types[1] != "emergency_alert" {
		t.Errorf("broadcast events = %v, want [new_message emergency_alert]", types)
	}

	calls := notifier.waitForCall(t)
	if len(calls) != 1 || calls[0] != "session.escalated" {
		t.Errorf("notifier calls = %v", calls)
	}
}

// A down on-call endpoint must never hold up the crisis sender's response;
// notification delivery, with its retries, runs off the request path.
func TestCrisisMessageReturnsBeforeNotifierFinishes(t *testing.T) {
	f := newFixture(t, false)
	notifier := &blockingNotifier{release: make(chan struct{})}
	f.svc.SetEscalationNotifier(notifier)

	start := time.Now()
	_, err := f.svc.SendMessage(context.Background(), f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "I want to hurt myself"})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("send blocked %v on notification delivery", elapsed)
	}
	close(notifier.release)
}

func TestEscalationIsMonotonic(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(),
			SendMessageInput{Content: "I keep thinking about suicide"}); err != nil {
			t.Fatal(err)
		}
	}

	if f.session.Status != SessionEscalated {
		t.Errorf("status = %s, want escalated", f.session.Status)
	}
	// Both crisis messages leave a durable record.
	if len(f.escalations.events) != 2 {
		t.Fatalf("escalation events = %d, want 2", len(f.escalations.events))
	}
	if f.escalations.events[1].ActionTaken != "already_escalated" {
		t.Errorf("second event action = %s, want already_escalated", f.escalations.events[1].ActionTaken)
	}
}

func TestBenignMessageDoesNotEscalate(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.SendMessage(context.Background(), f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "school was rough but I am okay"}); err != nil {
		t.Fatal(err)
	}
	if f.session.Status != SessionActive {
		t.Errorf("status = %s, want active", f.session.Status)
	}
	if len(f.escalations.events) != 0 {
		t.Errorf("escalation events = %d, want 0", len(f.escalations.events))
	}
}

// -- Fetch & Read State --

func TestSessionMessagesMarksRead(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(), SendMessageInput{Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SendMessage(ctx, f.session.ID, f.mentorPrincipal(), SendMessageInput{Content: "hello Alex"}); err != nil {
		t.Fatal(err)
	}

	views, total, err := f.svc.SessionMessages(ctx, f.session.ID, f.studentPrincipal(), 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(views) != 2 {
		t.Fatalf("got %d/%d messages, want 2/2", len(views), total)
	}
	if views[0].SenderName != "Alex" || views[1].SenderName != "Dr. Rivera" {
		t.Errorf("sender names = %q, %q", views[0].SenderName, views[1].SenderName)
	}

	// The mentor's message is now read; the student's own message is not
	// touched by their own fetch.
	for _, m := range f.messages.messages {
		if m.SenderID == f.mentor.ID && m.ReadAt == nil {
			t.Error("mentor message not marked read by student fetch")
		}
		if m.SenderID == f.student.ID && m.ReadAt != nil {
			t.Error("student's own message marked read by their fetch")
		}
	}

	// Mark-read is idempotent: a second fetch changes nothing.
	first := *f.messages.messages[1].ReadAt
	if _, _, err := f.svc.SessionMessages(ctx, f.session.ID, f.studentPrincipal(), 50, 0); err != nil {
		t.Fatal(err)
	}
	if !f.messages.messages[1].ReadAt.Equal(first) {
		t.Error("read_at re-stamped on second fetch")
	}
}

func TestUnreadCount(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(),
			SendMessageInput{Content: "checking in"}); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := f.svc.UnreadCount(ctx, f.mentorPrincipal())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Count != 3 || summary.SessionCount != 1 {
		t.Errorf("summary = %+v, want 3 unread across 1 session", summary)
	}

	// Fetching clears the counters.
	if _, _, err := f.svc.SessionMessages(ctx, f.session.ID, f.mentorPrincipal(), 50, 0); err != nil {
		t.Fatal(err)
	}
	summary, err = f.svc.UnreadCount(ctx, f.mentorPrincipal())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Count != 0 || summary.SessionCount != 0 {
		t.Errorf("summary after fetch = %+v, want zeros", summary)
	}
}

// -- Session Lifecycle --

func TestCreateSessionMatchesMentor(t *testing.T) {
	f := newFixture(t, true)

	sess, err := f.svc.CreateSession(context.Background(), f.studentPrincipal(), CreateSessionInput{})
	if err != nil {
		t.Fatal(err)
	}
	if sess.MentorID != f.mentor.ID {
		t.Errorf("mentor = %s, want %s", sess.MentorID, f.mentor.ID)
	}
	if sess.Status != SessionActive || sess.Priority != PriorityNormal || sess.SessionType != SessionTypeChat {
		t.Errorf("session defaults = %+v", sess)
	}
}

func TestCreateSessionNoMentorAvailable(t *testing.T) {
	f := newFixture(t, true)
	f.mentor.IsAvailable = false

	if _, err := f.svc.CreateSession(context.Background(), f.studentPrincipal(), CreateSessionInput{}); !errors.Is(err, ErrNoMentorAvailable) {
		t.Errorf("got %v, want ErrNoMentorAvailable", err)
	}
}

func TestCompleteSession(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	rating := 5
	feedback := "really helped"
	if err := f.svc.CompleteSession(ctx, f.session.ID, f.studentPrincipal(), &rating, &feedback); err != nil {
		t.Fatal(err)
	}
	if f.session.Status != SessionCompleted || f.session.Rating == nil || *f.session.Rating != 5 {
		t.Errorf("session = %+v", f.session)
	}

	// Completing a closed session fails.
	if err := f.svc.CompleteSession(ctx, f.session.ID, f.studentPrincipal(), nil, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("got %v, want ErrSessionClosed", err)
	}
}

func TestCompleteSessionRatingBounds(t *testing.T) {
	f := newFixture(t, false)
	var ve *ValidationError
	for _, bad := range []int{0, 6, -1} {
		r := bad
		if err := f.svc.CompleteSession(context.Background(), f.session.ID, f.studentPrincipal(), &r, nil); !errors.As(err, &ve) {
			t.Errorf("rating %d got %v, want ValidationError", bad, err)
		}
	}
}

func TestTerminateSession(t *testing.T) {
	f := newFixture(t, false)
	if err := f.svc.TerminateSession(context.Background(), f.session.ID, f.mentorPrincipal()); err != nil {
		t.Fatal(err)
	}
	if f.session.Status != SessionTerminated {
		t.Errorf("status = %s, want terminated", f.session.Status)
	}
}

// -- Escalation Review --

func TestListEscalationsRequiresMentor(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "I want to end it all"}); err != nil {
		t.Fatal(err)
	}

	events, total, err := f.svc.ListEscalations(ctx, f.mentorPrincipal(), 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(events) != 1 {
		t.Errorf("got %d/%d events, want 1/1", len(events), total)
	}

	if _, _, err := f.svc.ListEscalations(ctx, f.studentPrincipal(), 50, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("student listing escalations got %v, want ErrForbidden", err)
	}
	if _, _, err := f.svc.ListEscalations(ctx, Principal{AnonymousStudentID: f.student.ID}, 50, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("anonymous listing escalations got %v, want ErrForbidden", err)
	}
}

func TestSessionEscalationsMentorOnly(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.svc.SendMessage(ctx, f.session.ID, f.studentPrincipal(),
		SendMessageInput{Content: "I want to end my life"}); err != nil {
		t.Fatal(err)
	}
	f.escalations.events = append(f.escalations.events, &EscalationEvent{
		ID:        uuid.New(),
		SessionID: uuid.New(),
	})

	events, total, err := f.svc.SessionEscalations(ctx, f.session.ID, f.mentorPrincipal(), 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("got %d events, want only this session's 1", len(events))
	}
	if events[0].SessionID != f.session.ID {
		t.Errorf("event session = %s, want %s", events[0].SessionID, f.session.ID)
	}

	if _, _, err := f.svc.SessionEscalations(ctx, f.session.ID, f.studentPrincipal(), 50, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("student got %v, want ErrForbidden", err)
	}
	if _, _, err := f.svc.SessionEscalations(ctx, f.session.ID, Principal{UserID: "outsider"}, 50, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider got %v, want ErrForbidden", err)
	}
}
