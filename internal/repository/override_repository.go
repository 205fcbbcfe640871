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

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type OverrideRepository interface {
	ListByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.Override, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Override, error)
	GetByOwnKey(ctx context.Context, owner domain.OwnerRef, date time.Time) (domain.Override, error)
	Upsert(ctx context.Context, override domain.Override) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByWeekday(ctx context.Context, owner domain.OwnerRef, weekday int) (int64, error)
	DeleteMatchingSignature(ctx context.Context, owner domain.OwnerRef, weekday int, startTime, endTime, location string) (int64, error)
}

type OverridePostgresRepository struct {
	execer Execer
}

func NewOverridePostgresRepository(execer Execer) *OverridePostgresRepository {
	return &OverridePostgresRepository{execer: execer}
}

const overrideColumns = `id, owner_kind, owner_id, date, weekday, start_time, end_time, location, note, replaces_date, replaces_weekday`

func (r *OverridePostgresRepository) ListByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.Override, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM schedule.schedule_overrides
WHERE owner_kind = $1
ORDER BY date, start_time
`

	rows, err := r.execer.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, storeErr("list overrides", err)
	}
	defer rows.Close()

	var overrides []domain.Override
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list overrides", err)
	}

	return overrides, nil
}

func (r *OverridePostgresRepository) Get(ctx context.Context, id uuid.UUID) (domain.Override, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM schedule.schedule_overrides
WHERE id = $1
`

	override, err := scanOverride(r.execer.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Override{}, fmt.Errorf("override %s: %w", id, domain.ErrNotFound)
		}
		return domain.Override{}, err
	}
	return override, nil
}

func (r *OverridePostgresRepository) GetByOwnKey(ctx context.Context, owner domain.OwnerRef, date time.Time) (domain.Override, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM schedule.schedule_overrides
WHERE owner_kind = $1 AND owner_id = $2 AND date = $3
`

	override, err := scanOverride(r.execer.QueryRowContext(ctx, query, string(owner.Kind), owner.ID, domain.TruncateToDate(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Override{}, fmt.Errorf("override for %s on %s: %w", owner.ID, domain.DateKey(date), domain.ErrNotFound)
		}
		return domain.Override{}, err
	}
	return override, nil
}

func (r *OverridePostgresRepository) Upsert(ctx context.Context, override domain.Override) error {
	if err := override.Validate(); err != nil {
		return err
	}

	const query = `
INSERT INTO schedule.schedule_overrides (
	id,
	owner_kind,
	owner_id,
	date,
	weekday,
	start_time,
	end_time,
	location,
	note,
	replaces_date,
	replaces_weekday,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
ON CONFLICT (owner_kind, owner_id, date)
DO UPDATE SET
	weekday = EXCLUDED.weekday,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	location = EXCLUDED.location,
	note = EXCLUDED.note,
	replaces_date = EXCLUDED.replaces_date,
	replaces_weekday = EXCLUDED.replaces_weekday,
	updated_at = now()
`

	_, err := r.execer.ExecContext(
		ctx,
		query,
		override.ID,
		string(override.OwnerKind),
		override.OwnerID,
		domain.TruncateToDate(override.Date),
		override.Weekday,
		override.StartTime,
		override.EndTime,
		override.Location,
		override.Note,
		nullableDate(override.ReplacesDate),
		override.ReplacesWeekday,
	)
	if err != nil {
		return storeErr("upsert override", err)
	}
	return nil
}

func (r *OverridePostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM schedule.schedule_overrides WHERE id = $1`

	result, err := r.execer.ExecContext(ctx, query, id)
	if err != nil {
		return storeErr("delete override", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("delete override", err)
	}
	if affected == 0 {
		return fmt.Errorf("override %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *OverridePostgresRepository) DeleteByWeekday(ctx context.Context, owner domain.OwnerRef, weekday int) (int64, error) {
	const query = `
DELETE FROM schedule.schedule_overrides
WHERE owner_kind = $1 AND owner_id = $2
  AND (weekday = $3 OR replaces_weekday = $3)
`

	result, err := r.execer.ExecContext(ctx, query, string(owner.Kind), owner.ID, weekday)
	if err != nil {
		return 0, storeErr("delete overrides by weekday", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("delete overrides by weekday", err)
	}
	return affected, nil
}

func (r *OverridePostgresRepository) DeleteMatchingSignature(ctx context.Context, owner domain.OwnerRef, weekday int, startTime, endTime, location string) (int64, error) {
	const query = `
DELETE FROM schedule.schedule_overrides
WHERE owner_kind = $1 AND owner_id = $2
  AND weekday = $3 AND start_time = $4 AND end_time = $5 AND location = $6
`

	result, err := r.execer.ExecContext(ctx, query, string(owner.Kind), owner.ID, weekday, startTime, endTime, location)
	if err != nil {
		return 0, storeErr("delete overrides by signature", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("delete overrides by signature", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOverride parses-and-validates at the store boundary; a malformed row
// is surfaced instead of leaking into the engine.
func scanOverride(row rowScanner) (domain.Override, error) {
	var override domain.Override
	var kind string
	var location sql.NullString
	var note sql.NullString
	var replacesDate sql.NullTime
	var replacesWeekday sql.NullInt64
	if err := row.Scan(
		&override.ID,
		&kind,
		&override.OwnerID,
		&override.Date,
		&override.Weekday,
		&override.StartTime,
		&override.EndTime,
		&location,
		&note,
		&replacesDate,
		&replacesWeekday,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Override{}, err
		}
		return domain.Override{}, storeErr("scan override", err)
	}
	override.OwnerKind = domain.OwnerKind(kind)
	override.Date = domain.TruncateToDate(override.Date)
	if location.Valid {
		override.Location = location.String
	}
	if note.Valid {
		override.Note = note.String
	}
	if replacesDate.Valid && replacesWeekday.Valid {
		date := domain.TruncateToDate(replacesDate.Time)
		weekday := int(replacesWeekday.Int64)
		override.ReplacesDate = &date
		override.ReplacesWeekday = &weekday
	}
	if err := override.Validate(); err != nil {
		return domain.Override{}, err
	}
	return override, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.TruncateToDate(*t)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStore, op, err)
}
