package service

import (
	"context"
	"errors"
	"time"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/repository"
)

// SessionSynchronizer keeps attendance-session records consistent with
// moved or edited occurrences. Calls happen only after the schedule-store
// write has been acknowledged and are never transactional with it; a failed
// sync leaves at worst a stale session that Reconcile repairs.
type SessionSynchronizer interface {
	// Relocate moves the future session sitting on (owner, oldDate) to
	// newDate. A missing session is not an error.
	Relocate(ctx context.Context, owner domain.OwnerRef, oldDate, newDate time.Time) error
	// ShiftFutureByWeekday moves every future session of the owner whose
	// times match the slot being re-dayed, preserving each session's week
	// offset.
	ShiftFutureByWeekday(ctx context.Context, owner domain.OwnerRef, startTime, endTime string, oldWeekday, newWeekday int) error
	// RetimeFuture rewrites the time fields of future sessions that carry
	// the old slot times.
	RetimeFuture(ctx context.Context, owner domain.OwnerRef, oldStart, oldEnd, newStart, newEnd string) error
	// SyncDate copies the given times onto the session at (owner, date),
	// if one exists.
	SyncDate(ctx context.Context, owner domain.OwnerRef, date time.Time, startTime, endTime string) error
	// ListRange and Reschedule back the reconciliation pass.
	ListRange(ctx context.Context, from, to time.Time) ([]domain.Session, error)
	Reschedule(ctx context.Context, session domain.Session, date time.Time, startTime, endTime string) error
}

type storeSessionSynchronizer struct {
	sessions repository.SessionRepository
	clock    func() time.Time
}

func NewSessionSynchronizer(sessions repository.SessionRepository) SessionSynchronizer {
	return &storeSessionSynchronizer{sessions: sessions, clock: time.Now}
}

func (s *storeSessionSynchronizer) today() time.Time {
	return domain.TruncateToDate(s.clock())
}

func (s *storeSessionSynchronizer) Relocate(ctx context.Context, owner domain.OwnerRef, oldDate, newDate time.Time) error {
	if domain.TruncateToDate(oldDate).Before(s.today()) {
		return nil
	}
	session, err := s.sessions.FindByOwnerDate(ctx, owner, oldDate)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.sessions.UpdateTiming(ctx, session.ID, newDate, session.StartTime, session.EndTime)
}

func (s *storeSessionSynchronizer) ShiftFutureByWeekday(ctx context.Context, owner domain.OwnerRef, startTime, endTime string, oldWeekday, newWeekday int) error {
	sessions, err := s.sessions.ListByOwnerFrom(ctx, owner, s.today())
	if err != nil {
		return err
	}
	delta := newWeekday - oldWeekday
	for _, session := range sessions {
		if session.StartTime != startTime || session.EndTime != endTime {
			continue
		}
		if domain.WeekdayOf(session.Date) != oldWeekday {
			continue
		}
		target := session.Date.AddDate(0, 0, delta)
		if err := s.sessions.UpdateTiming(ctx, session.ID, target, session.StartTime, session.EndTime); err != nil {
			return err
		}
	}
	return nil
}

func (s *storeSessionSynchronizer) RetimeFuture(ctx context.Context, owner domain.OwnerRef, oldStart, oldEnd, newStart, newEnd string) error {
	sessions, err := s.sessions.ListByOwnerFrom(ctx, owner, s.today())
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if session.StartTime != oldStart || session.EndTime != oldEnd {
			continue
		}
		if err := s.sessions.UpdateTiming(ctx, session.ID, session.Date, newStart, newEnd); err != nil {
			return err
		}
	}
	return nil
}

func (s *storeSessionSynchronizer) SyncDate(ctx context.Context, owner domain.OwnerRef, date time.Time, startTime, endTime string) error {
	session, err := s.sessions.FindByOwnerDate(ctx, owner, date)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if session.StartTime == startTime && session.EndTime == endTime {
		return nil
	}
	return s.sessions.UpdateTiming(ctx, session.ID, session.Date, startTime, endTime)
}

func (s *storeSessionSynchronizer) ListRange(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	return s.sessions.ListByRange(ctx, from, to)
}

func (s *storeSessionSynchronizer) Reschedule(ctx context.Context, session domain.Session, date time.Time, startTime, endTime string) error {
	return s.sessions.UpdateTiming(ctx, session.ID, date, startTime, endTime)
}
