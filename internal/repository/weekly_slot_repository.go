package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

type WeeklySlotRepository interface {
	ListByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.WeeklySlot, error)
	Get(ctx context.Context, id uuid.UUID) (domain.WeeklySlot, error)
	Upsert(ctx context.Context, slot domain.WeeklySlot) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type WeeklySlotPostgresRepository struct {
	execer Execer
}

func NewWeeklySlotPostgresRepository(execer Execer) *WeeklySlotPostgresRepository {
	return &WeeklySlotPostgresRepository{execer: execer}
}

const slotColumns = `id, owner_kind, owner_id, weekday, start_time, end_time, location`

func (r *WeeklySlotPostgresRepository) ListByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.WeeklySlot, error) {
	const query = `
SELECT ` + slotColumns + `
FROM schedule.weekly_slots
WHERE owner_kind = $1
ORDER BY owner_id, weekday, start_time
`

	rows, err := r.execer.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, storeErr("list slots", err)
	}
	defer rows.Close()

	var slots []domain.WeeklySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list slots", err)
	}

	return slots, nil
}

func (r *WeeklySlotPostgresRepository) Get(ctx context.Context, id uuid.UUID) (domain.WeeklySlot, error) {
	const query = `
SELECT ` + slotColumns + `
FROM schedule.weekly_slots
WHERE id = $1
`

	slot, err := scanSlot(r.execer.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WeeklySlot{}, fmt.Errorf("slot %s: %w", id, domain.ErrNotFound)
		}
		return domain.WeeklySlot{}, err
	}
	return slot, nil
}

func (r *WeeklySlotPostgresRepository) Upsert(ctx context.Context, slot domain.WeeklySlot) error {
	if err := slot.Validate(); err != nil {
		return err
	}

	const query = `
INSERT INTO schedule.weekly_slots (
	id,
	owner_kind,
	owner_id,
	weekday,
	start_time,
	end_time,
	location,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
ON CONFLICT (id)
DO UPDATE SET
	weekday = EXCLUDED.weekday,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	location = EXCLUDED.location,
	updated_at = now()
`

	_, err := r.execer.ExecContext(
		ctx,
		query,
		slot.ID,
		string(slot.OwnerKind),
		slot.OwnerID,
		slot.Weekday,
		slot.StartTime,
		slot.EndTime,
		slot.Location,
	)
	if err != nil {
		return storeErr("upsert slot", err)
	}
	return nil
}

func (r *WeeklySlotPostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM schedule.weekly_slots WHERE id = $1`

	result, err := r.execer.ExecContext(ctx, query, id)
	if err != nil {
		return storeErr("delete slot", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("delete slot", err)
	}
	if affected == 0 {
		return fmt.Errorf("slot %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanSlot(row rowScanner) (domain.WeeklySlot, error) {
	var slot domain.WeeklySlot
	var kind string
	var location sql.NullString
	if err := row.Scan(
		&slot.ID,
		&kind,
		&slot.OwnerID,
		&slot.Weekday,
		&slot.StartTime,
		&slot.EndTime,
		&location,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WeeklySlot{}, err
		}
		return domain.WeeklySlot{}, storeErr("scan slot", err)
	}
	slot.OwnerKind = domain.OwnerKind(kind)
	if location.Valid {
		slot.Location = location.String
	}
	if err := slot.Validate(); err != nil {
		return domain.WeeklySlot{}, err
	}
	return slot, nil
}
