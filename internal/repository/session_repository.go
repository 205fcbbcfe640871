package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

// SessionRepository is the attendance-session collaborator boundary. Only
// date/time fields are ever written from here; the attendance payload is
// owned elsewhere.
type SessionRepository interface {
	ListByRange(ctx context.Context, from, to time.Time) ([]domain.Session, error)
	ListByOwnerFrom(ctx context.Context, owner domain.OwnerRef, from time.Time) ([]domain.Session, error)
	FindByOwnerDate(ctx context.Context, owner domain.OwnerRef, date time.Time) (domain.Session, error)
	UpdateTiming(ctx context.Context, id uuid.UUID, date time.Time, startTime, endTime string) error
}

type SessionPostgresRepository struct {
	execer Execer
}

func NewSessionPostgresRepository(execer Execer) *SessionPostgresRepository {
	return &SessionPostgresRepository{execer: execer}
}

const sessionColumns = `id, owner_kind, owner_id, date, start_time, end_time`

func (r *SessionPostgresRepository) ListByRange(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM schedule.sessions
WHERE date BETWEEN $1 AND $2
ORDER BY date, start_time
`

	rows, err := r.execer.QueryContext(ctx, query, domain.TruncateToDate(from), domain.TruncateToDate(to))
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (r *SessionPostgresRepository) ListByOwnerFrom(ctx context.Context, owner domain.OwnerRef, from time.Time) ([]domain.Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM schedule.sessions
WHERE owner_kind = $1 AND owner_id = $2 AND date >= $3
ORDER BY date, start_time
`

	rows, err := r.execer.QueryContext(ctx, query, string(owner.Kind), owner.ID, domain.TruncateToDate(from))
	if err != nil {
		return nil, storeErr("list sessions by owner", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (r *SessionPostgresRepository) FindByOwnerDate(ctx context.Context, owner domain.OwnerRef, date time.Time) (domain.Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM schedule.sessions
WHERE owner_kind = $1 AND owner_id = $2 AND date = $3
`

	session, err := scanSession(r.execer.QueryRowContext(ctx, query, string(owner.Kind), owner.ID, domain.TruncateToDate(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, fmt.Errorf("session for %s on %s: %w", owner.ID, domain.DateKey(date), domain.ErrNotFound)
		}
		return domain.Session{}, err
	}
	return session, nil
}

func (r *SessionPostgresRepository) UpdateTiming(ctx context.Context, id uuid.UUID, date time.Time, startTime, endTime string) error {
	if !domain.ValidHHMM(startTime) || !domain.ValidHHMM(endTime) {
		return fmt.Errorf("%w: invalid session times %q-%q", domain.ErrValidation, startTime, endTime)
	}

	const query = `
UPDATE schedule.sessions
SET date = $2, start_time = $3, end_time = $4, updated_at = now()
WHERE id = $1
`

	result, err := r.execer.ExecContext(ctx, query, id, domain.TruncateToDate(date), startTime, endTime)
	if err != nil {
		return storeErr("update session timing", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("update session timing", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func collectSessions(rows *sql.Rows) ([]domain.Session, error) {
	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list sessions", err)
	}
	return sessions, nil
}

func scanSession(row rowScanner) (domain.Session, error) {
	var session domain.Session
	var kind string
	if err := row.Scan(
		&session.ID,
		&kind,
		&session.OwnerID,
		&session.Date,
		&session.StartTime,
		&session.EndTime,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, err
		}
		return domain.Session{}, storeErr("scan session", err)
	}
	session.OwnerKind = domain.OwnerKind(kind)
	session.Date = domain.TruncateToDate(session.Date)
	return session, nil
}
