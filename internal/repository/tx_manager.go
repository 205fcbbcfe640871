package repository

import (
	"context"
	"database/sql"
)

// TxRepositories groups the schedule-store repositories that share one
// transaction. Sessions are deliberately absent: the session store is a
// separate collaborator and its writes are never transactional with the
// ledger (see the synchronizer).
type TxRepositories struct {
	Slots     WeeklySlotRepository
	Overrides OverrideRepository
	Outbox    OutboxRepository
}

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}

type PostgresTxManager struct {
	db *sql.DB
}

func NewPostgresTxManager(db *sql.DB) *PostgresTxManager {
	return &PostgresTxManager{db: db}
}

func (m *PostgresTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return storeErr("begin tx", err)
	}

	repos := TxRepositories{
		Slots:     NewWeeklySlotPostgresRepository(tx),
		Overrides: NewOverridePostgresRepository(tx),
		Outbox:    NewOutboxPostgresRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return storeErr("rollback", rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}
