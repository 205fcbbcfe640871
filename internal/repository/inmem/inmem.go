// Package inmem provides in-memory implementations of the store
// collaborators, mirroring the Postgres repositories' semantics (including
// the (owner, date) upsert key on overrides). Used by tests and by local
// runs without a database.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/repository"
)

type Store struct {
	mu        sync.Mutex
	slots     map[uuid.UUID]domain.WeeklySlot
	overrides map[uuid.UUID]domain.Override

	sessMu   sync.Mutex
	sessions map[uuid.UUID]domain.Session

	eventMu sync.Mutex
	events  []domain.ChangeEvent

	// FailWrites makes every schedule write fail with ErrStore; tests use
	// it to exercise the not-applied guarantee.
	FailWrites bool
}

func NewStore() *Store {
	return &Store{
		slots:     make(map[uuid.UUID]domain.WeeklySlot),
		overrides: make(map[uuid.UUID]domain.Override),
		sessions:  make(map[uuid.UUID]domain.Session),
	}
}

// WithTx runs fn over the store under one lock. Writes are applied
// immediately; an error from fn leaves earlier writes in place, so failure
// ordering inside fn matters just as it does against Postgres without a
// rollback-triggering constraint.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	repos := repository.TxRepositories{
		Slots:     &slotRepo{store: s},
		Overrides: &overrideRepo{store: s},
		Outbox:    &outboxRepo{store: s},
	}
	return fn(ctx, repos)
}

// Events returns the outbox contents in append order.
func (s *Store) Events() []domain.ChangeEvent {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	out := make([]domain.ChangeEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) SeedSlot(slot domain.WeeklySlot) {
	s.slots[slot.ID] = slot
}

func (s *Store) SeedOverride(override domain.Override) {
	s.overrides[override.ID] = override
}

func (s *Store) SeedSession(session domain.Session) {
	s.sessions[session.ID] = session
}

func (s *Store) Snapshot() (slots []domain.WeeklySlot, overrides []domain.Override, sessions []domain.Session) {
	for _, slot := range s.slots {
		slots = append(slots, slot)
	}
	for _, ov := range s.overrides {
		overrides = append(overrides, ov)
	}
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	return slots, overrides, sessions
}

func (s *Store) writeErr(op string) error {
	if s.FailWrites {
		return fmt.Errorf("%w: %s: injected failure", domain.ErrStore, op)
	}
	return nil
}

type slotRepo struct {
	store *Store
}

func (r *slotRepo) ListByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.WeeklySlot, error) {
	var out []domain.WeeklySlot
	for _, slot := range r.store.slots {
		if slot.OwnerKind == kind {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (r *slotRepo) Get(ctx context.Context, id uuid.UUID) (domain.WeeklySlot, error) {
	slot, ok := r.store.slots[id]
	if !ok {
		return domain.WeeklySlot{}, fmt.Errorf("slot %s: %w", id, domain.ErrNotFound)
	}
	return slot, nil
}

func (r *slotRepo) Upsert(ctx context.Context, slot domain.WeeklySlot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	if err := r.store.writeErr("upsert slot"); err != nil {
		return err
	}
	r.store.slots[slot.ID] = slot
	return nil
}

func (r *slotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.writeErr("delete slot"); err != nil {
		return err
	}
	if _, ok := r.store.slots[id]; !ok {
		return fmt.Errorf("slot %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.slots, id)
	return nil
}

type overrideRepo struct {
	store *Store
}

func (r *overrideRepo) ListByKind(ctx context.Context, kind domain.OwnerKind) ([]domain.Override, error) {
	var out []domain.Override
	for _, ov := range r.store.overrides {
		if ov.OwnerKind == kind {
			out = append(out, ov)
		}
	}
	return out, nil
}

func (r *overrideRepo) Get(ctx context.Context, id uuid.UUID) (domain.Override, error) {
	ov, ok := r.store.overrides[id]
	if !ok {
		return domain.Override{}, fmt.Errorf("override %s: %w", id, domain.ErrNotFound)
	}
	return ov, nil
}

func (r *overrideRepo) GetByOwnKey(ctx context.Context, owner domain.OwnerRef, date time.Time) (domain.Override, error) {
	for _, ov := range r.store.overrides {
		if ov.Owner() == owner && domain.SameDate(ov.Date, date) {
			return ov, nil
		}
	}
	return domain.Override{}, fmt.Errorf("override for %s on %s: %w", owner.ID, domain.DateKey(date), domain.ErrNotFound)
}

func (r *overrideRepo) Upsert(ctx context.Context, override domain.Override) error {
	if err := override.Validate(); err != nil {
		return err
	}
	if err := r.store.writeErr("upsert override"); err != nil {
		return err
	}
	// The (owner, date) key wins over the incoming id, matching the
	// Postgres ON CONFLICT clause which keeps the existing row id.
	for id, existing := range r.store.overrides {
		if existing.Owner() == override.Owner() && domain.SameDate(existing.Date, override.Date) {
			override.ID = id
			r.store.overrides[id] = override
			return nil
		}
	}
	r.store.overrides[override.ID] = override
	return nil
}

func (r *overrideRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.writeErr("delete override"); err != nil {
		return err
	}
	if _, ok := r.store.overrides[id]; !ok {
		return fmt.Errorf("override %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.overrides, id)
	return nil
}

func (r *overrideRepo) DeleteByWeekday(ctx context.Context, owner domain.OwnerRef, weekday int) (int64, error) {
	if err := r.store.writeErr("delete overrides by weekday"); err != nil {
		return 0, err
	}
	var affected int64
	for id, ov := range r.store.overrides {
		if ov.Owner() != owner {
			continue
		}
		if ov.Weekday == weekday || (ov.ReplacesWeekday != nil && *ov.ReplacesWeekday == weekday) {
			delete(r.store.overrides, id)
			affected++
		}
	}
	return affected, nil
}

func (r *overrideRepo) DeleteMatchingSignature(ctx context.Context, owner domain.OwnerRef, weekday int, startTime, endTime, location string) (int64, error) {
	if err := r.store.writeErr("delete overrides by signature"); err != nil {
		return 0, err
	}
	var affected int64
	for id, ov := range r.store.overrides {
		if ov.Owner() != owner {
			continue
		}
		if ov.Weekday == weekday && ov.StartTime == startTime && ov.EndTime == endTime && ov.Location == location {
			delete(r.store.overrides, id)
			affected++
		}
	}
	return affected, nil
}

type outboxRepo struct {
	store *Store
}

func (r *outboxRepo) Insert(ctx context.Context, event domain.ChangeEvent) error {
	if err := r.store.writeErr("insert outbox event"); err != nil {
		return err
	}
	r.store.eventMu.Lock()
	defer r.store.eventMu.Unlock()
	r.store.events = append(r.store.events, event)
	return nil
}

// SessionStore implements repository.SessionRepository over the same Store.
type SessionStore struct {
	store *Store

	// FailWrites injects session-write failures independently of the
	// schedule store, for partial-failure tests.
	FailWrites bool
}

func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

func (r *SessionStore) ListByRange(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	r.store.sessMu.Lock()
	defer r.store.sessMu.Unlock()
	from = domain.TruncateToDate(from)
	to = domain.TruncateToDate(to)
	var out []domain.Session
	for _, sess := range r.store.sessions {
		if sess.Date.Before(from) || sess.Date.After(to) {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func (r *SessionStore) ListByOwnerFrom(ctx context.Context, owner domain.OwnerRef, from time.Time) ([]domain.Session, error) {
	r.store.sessMu.Lock()
	defer r.store.sessMu.Unlock()
	from = domain.TruncateToDate(from)
	var out []domain.Session
	for _, sess := range r.store.sessions {
		if sess.Owner() == owner && !sess.Date.Before(from) {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (r *SessionStore) FindByOwnerDate(ctx context.Context, owner domain.OwnerRef, date time.Time) (domain.Session, error) {
	r.store.sessMu.Lock()
	defer r.store.sessMu.Unlock()
	for _, sess := range r.store.sessions {
		if sess.Owner() == owner && domain.SameDate(sess.Date, date) {
			return sess, nil
		}
	}
	return domain.Session{}, fmt.Errorf("session for %s on %s: %w", owner.ID, domain.DateKey(date), domain.ErrNotFound)
}

func (r *SessionStore) UpdateTiming(ctx context.Context, id uuid.UUID, date time.Time, startTime, endTime string) error {
	if r.FailWrites {
		return fmt.Errorf("%w: update session timing: injected failure", domain.ErrStore)
	}
	r.store.sessMu.Lock()
	defer r.store.sessMu.Unlock()
	sess, ok := r.store.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	sess.Date = domain.TruncateToDate(date)
	sess.StartTime = startTime
	sess.EndTime = endTime
	r.store.sessions[id] = sess
	return nil
}
