package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

type OutboxRepository interface {
	Insert(ctx context.Context, event domain.ChangeEvent) error
}

type OutboxPostgresRepository struct {
	execer Execer
}

func NewOutboxPostgresRepository(execer Execer) *OutboxPostgresRepository {
	return &OutboxPostgresRepository{execer: execer}
}

func (r *OutboxPostgresRepository) Insert(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return storeErr("marshal event payload", err)
	}

	const query = `
INSERT INTO schedule.outbox_events (
	id,
	event_type,
	payload,
	created_at,
	published
) VALUES ($1, $2, $3, now(), false)
`

	if _, err := r.execer.ExecContext(ctx, query, uuid.New(), event.EventType, payload); err != nil {
		return storeErr("insert outbox event", err)
	}
	return nil
}
