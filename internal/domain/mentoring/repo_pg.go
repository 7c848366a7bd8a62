package mentoring

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindline/mindline/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// -- Session Repository --

type sessionRepoPG struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

func (r *sessionRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const sessionCols = `id, student_id, mentor_id, category_id, session_type, status, priority,
	rating, feedback, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.StudentID, &s.MentorID, &s.CategoryID, &s.SessionType, &s.Status, &s.Priority,
		&s.Rating, &s.Feedback, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO mentoring_session (id, student_id, mentor_id, category_id, session_type, status, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		s.ID, s.StudentID, s.MentorID, s.CategoryID, s.SessionType, s.Status, s.Priority,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return scanSession(r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM mentoring_session WHERE id = $1`, id))
}

func (r *sessionRepoPG) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE mentoring_session SET updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *sessionRepoPG) Escalate(ctx context.Context, id uuid.UUID) (bool, error) {
	// Conditional on active status: escalation never downgrades and never
	// reopens a closed session.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE mentoring_session
		SET status = $2, priority = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, SessionEscalated, PriorityUrgent, SessionActive,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *sessionRepoPG) Close(ctx context.Context, id uuid.UUID, status string, rating *int, feedback *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE mentoring_session
		SET status = $2, rating = $3, feedback = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ($5, $6)`,
		id, status, rating, feedback, SessionActive, SessionEscalated,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already terminal; disambiguate for the caller.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrSessionClosed
	}
	return nil
}

func (r *sessionRepoPG) ListByParticipant(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM mentoring_session WHERE student_id = $1 OR mentor_id = $1`, profileID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+sessionCols+` FROM mentoring_session
		WHERE student_id = $1 OR mentor_id = $1
		ORDER BY updated_at DESC LIMIT $2 OFFSET $3`, profileID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID, &s.StudentID, &s.MentorID, &s.CategoryID, &s.SessionType, &s.Status, &s.Priority,
			&s.Rating, &s.Feedback, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, total, nil
}

// -- Message Repository --

type messageRepoPG struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const messageCols = `id, session_id, sender_id, sender_type, message_type, content,
	attachments, is_encrypted, sent_at, read_at`

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO session_message (id, session_id, sender_id, sender_type, message_type, content, attachments, is_encrypted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING sent_at`,
		m.ID, m.SessionID, m.SenderID, m.SenderType, m.MessageType, m.Content, m.Attachments, m.IsEncrypted,
	).Scan(&m.SentAt)
}

func (r *messageRepoPG) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM session_message WHERE session_id = $1`, sessionID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+messageCols+` FROM session_message
		WHERE session_id = $1
		ORDER BY sent_at ASC LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.SenderID, &m.SenderType, &m.MessageType, &m.Content,
			&m.Attachments, &m.IsEncrypted, &m.SentAt, &m.ReadAt,
		); err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, total, nil
}

func (r *messageRepoPG) MarkRead(ctx context.Context, sessionID, readerID uuid.UUID) (int64, error) {
	// The read_at IS NULL predicate makes re-marking a no-op: a stamp is
	// never overwritten.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE session_message
		SET read_at = NOW()
		WHERE session_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		sessionID, readerID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *messageRepoPG) CountUnread(ctx context.Context, profileID uuid.UUID) (*UnreadSummary, error) {
	var summary UnreadSummary
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT m.session_id)
		FROM session_message m
		JOIN mentoring_session s ON m.session_id = s.id
		WHERE (s.student_id = $1 OR s.mentor_id = $1)
		  AND m.sender_id <> $1
		  AND m.read_at IS NULL`,
		profileID,
	).Scan(&summary.Count, &summary.SessionCount)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// -- Profile Repository --

type profileRepoPG struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const studentCols = `id, user_id, display_name, is_anonymous, created_at, updated_at`

const mentorCols = `id, user_id, display_name, specialty, category_id, is_verified, is_available, created_at, updated_at`

func scanStudent(row pgx.Row) (*StudentProfile, error) {
	var p StudentProfile
	err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.IsAnonymous, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanMentor(row pgx.Row) (*MentorProfile, error) {
	var p MentorProfile
	err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Specialty, &p.CategoryID,
		&p.IsVerified, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoPG) CreateStudent(ctx context.Context, p *StudentProfile) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO student_profile (id, user_id, display_name, is_anonymous)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.DisplayName, p.IsAnonymous,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *profileRepoPG) CreateMentor(ctx context.Context, p *MentorProfile) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO mentor_profile (id, user_id, display_name, specialty, category_id, is_verified, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.DisplayName, p.Specialty, p.CategoryID, p.IsVerified, p.IsAvailable,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *profileRepoPG) GetStudent(ctx context.Context, id uuid.UUID) (*StudentProfile, error) {
	return scanStudent(r.conn(ctx).QueryRow(ctx, `SELECT `+studentCols+` FROM student_profile WHERE id = $1`, id))
}

func (r *profileRepoPG) GetMentor(ctx context.Context, id uuid.UUID) (*MentorProfile, error) {
	return scanMentor(r.conn(ctx).QueryRow(ctx, `SELECT `+mentorCols+` FROM mentor_profile WHERE id = $1`, id))
}

func (r *profileRepoPG) GetStudentByUser(ctx context.Context, userID string) (*StudentProfile, error) {
	return scanStudent(r.conn(ctx).QueryRow(ctx, `SELECT `+studentCols+` FROM student_profile WHERE user_id = $1`, userID))
}

func (r *profileRepoPG) GetMentorByUser(ctx context.Context, userID string) (*MentorProfile, error) {
	return scanMentor(r.conn(ctx).QueryRow(ctx, `SELECT `+mentorCols+` FROM mentor_profile WHERE user_id = $1`, userID))
}

func (r *profileRepoPG) SetMentorAvailability(ctx context.Context, mentorID uuid.UUID, available bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE mentor_profile SET is_available = $2, updated_at = NOW() WHERE id = $1`,
		mentorID, available,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *profileRepoPG) FindAvailableMentor(ctx context.Context, categoryID *uuid.UUID) (*MentorProfile, error) {
	// Least-recently-matched first so sessions spread across the mentor pool.
	// A category match is preferred but not required.
	m, err := scanMentor(r.conn(ctx).QueryRow(ctx, `
		SELECT `+mentorCols+` FROM mentor_profile
		WHERE is_verified AND is_available
		ORDER BY (category_id IS NOT DISTINCT FROM $1) DESC, updated_at ASC
		LIMIT 1`, categoryID))
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNoMentorAvailable
		}
		return nil, err
	}
	return m, nil
}

// -- Escalation Repository --

type escalationRepoPG struct {
	pool *pgxpool.Pool
}

func NewEscalationRepo(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepoPG{pool: pool}
}

func (r *escalationRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const escalationCols = `id, session_id, matched_terms, severity, action_taken, resolution_status, created_at`

func (r *escalationRepoPG) Create(ctx context.Context, e *EscalationEvent) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO escalation_event (id, session_id, matched_terms, severity, action_taken, resolution_status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		e.ID, e.SessionID, e.MatchedTerms, e.Severity, e.ActionTaken, e.ResolutionStatus,
	).Scan(&e.CreatedAt)
}

func (r *escalationRepoPG) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*EscalationEvent, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM escalation_event WHERE session_id = $1`, sessionID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+escalationCols+` FROM escalation_event
		WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectEscalations(rows, total)
}

func (r *escalationRepoPG) List(ctx context.Context, limit, offset int) ([]*EscalationEvent, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM escalation_event`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+escalationCols+` FROM escalation_event
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectEscalations(rows, total)
}

func collectEscalations(rows pgx.Rows, total int) ([]*EscalationEvent, int, error) {
	var events []*EscalationEvent
	for rows.Next() {
		var e EscalationEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.MatchedTerms, &e.Severity,
			&e.ActionTaken, &e.ResolutionStatus, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, &e)
	}
	return events, total, nil
}
