package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/repository"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/schedule"
)

var ownerKinds = []domain.OwnerKind{domain.OwnerKindClass, domain.OwnerKindStaff}

// ScheduleService drives the recurrence engine against the two store
// collaborators: moves and edits go to the schedule store inside one
// transaction, the session cascade runs afterwards against the session
// store, and resolution reads from a cached snapshot that change
// notifications invalidate.
type ScheduleService struct {
	txManager repository.TxManager
	sessions  SessionSynchronizer
	notifier  *schedule.Notifier
	logger    *log.Logger
	clock     func() time.Time

	mu     sync.Mutex
	cached *schedule.Snapshot

	subID int
	done  chan struct{}
}

func NewScheduleService(txManager repository.TxManager, sessions SessionSynchronizer, notifier *schedule.Notifier, logger *log.Logger) *ScheduleService {
	s := &ScheduleService{
		txManager: txManager,
		sessions:  sessions,
		notifier:  notifier,
		logger:    logger,
		clock:     time.Now,
		done:      make(chan struct{}),
	}

	id, events := notifier.Subscribe()
	s.subID = id
	go func() {
		for {
			select {
			case <-s.done:
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				s.invalidate()
			}
		}
	}()

	return s
}

func (s *ScheduleService) Close() {
	s.notifier.Unsubscribe(s.subID)
	close(s.done)
}

func (s *ScheduleService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *ScheduleService) snapshot(ctx context.Context) (schedule.Snapshot, error) {
	s.mu.Lock()
	if s.cached != nil {
		snap := *s.cached
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	var snap schedule.Snapshot
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		for _, kind := range ownerKinds {
			slots, err := repos.Slots.ListByKind(ctx, kind)
			if err != nil {
				return err
			}
			snap.Slots = append(snap.Slots, slots...)

			overrides, err := repos.Overrides.ListByKind(ctx, kind)
			if err != nil {
				return err
			}
			snap.Overrides = append(snap.Overrides, overrides...)
		}
		return nil
	})
	if err != nil {
		return schedule.Snapshot{}, err
	}

	s.mu.Lock()
	s.cached = &snap
	s.mu.Unlock()
	return snap, nil
}

// DaySchedule is one day of the weekly grid: the resolved occurrences plus
// their column placement, keyed by Occurrence.Key.
type DaySchedule struct {
	Date        time.Time
	Occurrences []domain.Occurrence
	Placements  map[string]schedule.Placement
}

type WeekSchedule struct {
	Start time.Time
	Days  []DaySchedule
}

// WeekView resolves seven days starting at start for every owner of the
// given kind, or for the single owner when ownerID is set, and lays out
// each day's occurrences.
func (s *ScheduleService) WeekView(ctx context.Context, kind domain.OwnerKind, ownerID *uuid.UUID, start time.Time) (WeekSchedule, error) {
	if !kind.Valid() {
		return WeekSchedule{}, fmt.Errorf("%w: unknown owner kind %q", domain.ErrValidation, string(kind))
	}
	start = domain.TruncateToDate(start)
	end := start.AddDate(0, 0, 6)

	snap, err := s.snapshot(ctx)
	if err != nil {
		return WeekSchedule{}, err
	}

	var owners []domain.OwnerRef
	for _, owner := range snap.Owners() {
		if owner.Kind != kind {
			continue
		}
		if ownerID != nil && owner.ID != *ownerID {
			continue
		}
		owners = append(owners, owner)
	}

	occurrences := schedule.Resolve(snap, owners, start, end)

	byDate := make(map[string][]domain.Occurrence)
	for _, occ := range occurrences {
		key := domain.DateKey(occ.Date)
		byDate[key] = append(byDate[key], occ)
	}

	week := WeekSchedule{Start: start}
	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i)
		dayOccs := byDate[domain.DateKey(date)]
		week.Days = append(week.Days, DaySchedule{
			Date:        date,
			Occurrences: dayOccs,
			Placements:  schedule.Layout(dayOccs),
		})
	}
	return week, nil
}

// MoveSingle relocates exactly one date's occurrence to targetDate, leaving
// the recurring series untouched. A base occurrence becomes an override
// that suppresses its original date; a moved override is re-created at the
// target with its root suppression preserved, so the true original base
// date stays hidden across any number of re-moves. Re-applying the same
// intent is a no-op.
func (s *ScheduleService) MoveSingle(ctx context.Context, occ domain.Occurrence, targetDate time.Time) error {
	if err := occ.Validate(); err != nil {
		return err
	}
	if targetDate.IsZero() {
		return fmt.Errorf("%w: missing target date", domain.ErrValidation)
	}
	targetDate = domain.TruncateToDate(targetDate)
	if domain.SameDate(occ.Date, targetDate) {
		return nil
	}

	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		override := domain.Override{
			ID:        uuid.New(),
			OwnerKind: occ.Owner.Kind,
			OwnerID:   occ.Owner.ID,
			Date:      targetDate,
			Weekday:   domain.WeekdayOf(targetDate),
			StartTime: occ.StartTime,
			EndTime:   occ.EndTime,
			Location:  occ.Location,
			Note:      occ.Note,
		}

		var supersededID *uuid.UUID
		switch occ.Source {
		case domain.SourceBase:
			rootDate := domain.TruncateToDate(occ.Date)
			rootWeekday := occ.Weekday
			override.ReplacesDate = &rootDate
			override.ReplacesWeekday = &rootWeekday

		case domain.SourceOverride:
			old, err := repos.Overrides.Get(ctx, occ.OverrideID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					if s.alreadyMoved(ctx, repos, occ, targetDate) {
						return nil
					}
				}
				return err
			}
			// Carry the root suppression forward, never reset it to
			// the override's own date.
			override.ReplacesDate = old.ReplacesDate
			override.ReplacesWeekday = old.ReplacesWeekday
			oldID := old.ID
			supersededID = &oldID
		}

		// The replacement lands before the superseded row is removed.
		if err := repos.Overrides.Upsert(ctx, override); err != nil {
			return err
		}
		if supersededID != nil {
			if err := repos.Overrides.Delete(ctx, *supersededID); err != nil {
				return err
			}
		}
		return repos.Outbox.Insert(ctx, moveEvent(domain.EventScheduleMoved, occ.Owner, occ.Date, targetDate))
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.notifier.Publish(moveEvent(domain.EventScheduleMoved, occ.Owner, occ.Date, targetDate))

	if err := s.sessions.Relocate(ctx, occ.Owner, occ.Date, targetDate); err != nil {
		// The ledger write stands; the stale session is picked up by
		// the next reconciliation pass.
		s.logger.Printf("session relocate failed for %s %s -> %s: %v",
			occ.Owner.ID, domain.DateKey(occ.Date), domain.DateKey(targetDate), err)
	}
	return nil
}

// alreadyMoved recognizes a re-applied move intent: the source override is
// gone but an equivalent override already sits on the target date.
func (s *ScheduleService) alreadyMoved(ctx context.Context, repos repository.TxRepositories, occ domain.Occurrence, targetDate time.Time) bool {
	existing, err := repos.Overrides.GetByOwnKey(ctx, occ.Owner, targetDate)
	if err != nil {
		return false
	}
	return existing.StartTime == occ.StartTime && existing.EndTime == occ.EndTime
}

// MoveSeries changes the recurring weekday of the occurrence's slot for all
// future occurrences. Overrides referencing the old weekday, directly or as
// a suppressed weekday, no longer apply and are deleted after the slot
// update succeeds; future sessions matching the slot's times shift by the
// weekday delta, keeping their week offset.
func (s *ScheduleService) MoveSeries(ctx context.Context, occ domain.Occurrence, targetWeekday int) error {
	if err := occ.Validate(); err != nil {
		return err
	}
	if !domain.ValidWeekday(targetWeekday) {
		return fmt.Errorf("%w: weekday %d out of range", domain.ErrValidation, targetWeekday)
	}
	if occ.Source != domain.SourceBase {
		return fmt.Errorf("%w: series move requires a base occurrence", domain.ErrValidation)
	}

	var oldWeekday int
	var slot domain.WeeklySlot
	applied := false

	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		slot, err = repos.Slots.Get(ctx, occ.SlotID)
		if err != nil {
			return err
		}
		oldWeekday = slot.Weekday
		if oldWeekday == targetWeekday {
			return nil
		}

		slot.Weekday = targetWeekday
		if err := repos.Slots.Upsert(ctx, slot); err != nil {
			return err
		}
		if _, err := repos.Overrides.DeleteByWeekday(ctx, slot.Owner(), oldWeekday); err != nil {
			return err
		}
		applied = true
		return repos.Outbox.Insert(ctx, seriesEvent(slot.Owner(), oldWeekday, targetWeekday))
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	s.invalidate()
	s.notifier.Publish(seriesEvent(slot.Owner(), oldWeekday, targetWeekday))

	if err := s.sessions.ShiftFutureByWeekday(ctx, slot.Owner(), slot.StartTime, slot.EndTime, oldWeekday, targetWeekday); err != nil {
		s.logger.Printf("session shift failed for %s weekday %d -> %d: %v",
			slot.OwnerID, oldWeekday, targetWeekday, err)
	}
	return nil
}

// EditSingle changes time or location for one date only, as an override
// upsert with the date unchanged. A moved occurrence keeps its root
// suppression.
func (s *ScheduleService) EditSingle(ctx context.Context, occ domain.Occurrence, newStart, newEnd, newLocation string) error {
	if err := occ.Validate(); err != nil {
		return err
	}

	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		override := domain.Override{
			ID:        uuid.New(),
			OwnerKind: occ.Owner.Kind,
			OwnerID:   occ.Owner.ID,
			Date:      domain.TruncateToDate(occ.Date),
			Weekday:   occ.Weekday,
			StartTime: newStart,
			EndTime:   newEnd,
			Location:  newLocation,
			Note:      occ.Note,
		}
		if occ.Source == domain.SourceOverride {
			old, err := repos.Overrides.Get(ctx, occ.OverrideID)
			if err != nil {
				return err
			}
			override.ID = old.ID
			override.ReplacesDate = old.ReplacesDate
			override.ReplacesWeekday = old.ReplacesWeekday
		}
		if err := repos.Overrides.Upsert(ctx, override); err != nil {
			return err
		}
		return repos.Outbox.Insert(ctx, moveEvent(domain.EventScheduleEdited, occ.Owner, occ.Date, occ.Date))
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.notifier.Publish(moveEvent(domain.EventScheduleEdited, occ.Owner, occ.Date, occ.Date))

	if err := s.sessions.SyncDate(ctx, occ.Owner, occ.Date, newStart, newEnd); err != nil {
		s.logger.Printf("session retime failed for %s on %s: %v",
			occ.Owner.ID, domain.DateKey(occ.Date), err)
	}
	return nil
}

// EditSeries rewrites the slot's time/location in place, drops overrides
// whose own fields merely duplicated the old slot signature, and retimes
// matching future sessions.
func (s *ScheduleService) EditSeries(ctx context.Context, occ domain.Occurrence, newStart, newEnd, newLocation string) error {
	if err := occ.Validate(); err != nil {
		return err
	}
	if occ.Source != domain.SourceBase {
		return fmt.Errorf("%w: series edit requires a base occurrence", domain.ErrValidation)
	}

	var slot domain.WeeklySlot
	var oldStart, oldEnd string

	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		slot, err = repos.Slots.Get(ctx, occ.SlotID)
		if err != nil {
			return err
		}
		oldStart, oldEnd = slot.StartTime, slot.EndTime
		oldLocation := slot.Location

		slot.StartTime = newStart
		slot.EndTime = newEnd
		slot.Location = newLocation
		if err := repos.Slots.Upsert(ctx, slot); err != nil {
			return err
		}
		if _, err := repos.Overrides.DeleteMatchingSignature(ctx, slot.Owner(), slot.Weekday, oldStart, oldEnd, oldLocation); err != nil {
			return err
		}
		return repos.Outbox.Insert(ctx, seriesEvent(slot.Owner(), slot.Weekday, slot.Weekday))
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.notifier.Publish(seriesEvent(slot.Owner(), slot.Weekday, slot.Weekday))

	if err := s.sessions.RetimeFuture(ctx, slot.Owner(), oldStart, oldEnd, newStart, newEnd); err != nil {
		s.logger.Printf("session retime failed for %s: %v", slot.OwnerID, err)
	}
	return nil
}

// RevertSingle deletes the occurrence's override. If it suppressed a base
// date, that date resurfaces on the next resolve and the session moves
// back to it.
func (s *ScheduleService) RevertSingle(ctx context.Context, occ domain.Occurrence) error {
	if err := occ.Validate(); err != nil {
		return err
	}
	if occ.Source != domain.SourceOverride {
		return fmt.Errorf("%w: only override occurrences can be reverted", domain.ErrValidation)
	}

	var old domain.Override
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		old, err = repos.Overrides.Get(ctx, occ.OverrideID)
		if err != nil {
			return err
		}
		if err := repos.Overrides.Delete(ctx, old.ID); err != nil {
			return err
		}
		return repos.Outbox.Insert(ctx, moveEvent(domain.EventScheduleReverted, occ.Owner, occ.Date, occ.Date))
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.notifier.Publish(moveEvent(domain.EventScheduleReverted, occ.Owner, occ.Date, occ.Date))

	if old.ReplacesDate != nil {
		if err := s.sessions.Relocate(ctx, occ.Owner, old.Date, *old.ReplacesDate); err != nil {
			s.logger.Printf("session relocate failed for %s %s -> %s: %v",
				occ.Owner.ID, domain.DateKey(old.Date), domain.DateKey(*old.ReplacesDate), err)
		}
	}
	return nil
}

// RemoveSlot deletes a weekly slot and cascade-deletes the owner's
// overrides tied to its weekday, directly or as a suppressed weekday.
func (s *ScheduleService) RemoveSlot(ctx context.Context, slotID uuid.UUID) error {
	var owner domain.OwnerRef
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		slot, err := repos.Slots.Get(ctx, slotID)
		if err != nil {
			return err
		}
		owner = slot.Owner()
		if err := repos.Slots.Delete(ctx, slotID); err != nil {
			return err
		}
		if _, err := repos.Overrides.DeleteByWeekday(ctx, owner, slot.Weekday); err != nil {
			return err
		}
		return repos.Outbox.Insert(ctx, domain.ChangeEvent{
			EventType: domain.EventSlotRemoved,
			Payload: domain.ScheduleChangePayload{
				OwnerKind: string(owner.Kind),
				OwnerID:   owner.ID.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.notifier.Publish(domain.ChangeEvent{EventType: domain.EventSlotRemoved})
	return nil
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Relocated int
	Retimed   int
	Unmatched int
}

// Reconcile detects sessions whose date matches no resolved occurrence
// within the horizon and re-syncs them: each orphan is paired, in date
// order, with a resolved occurrence date that lacks a session. Sessions on
// matching dates but with stale times are retimed. The pass is idempotent;
// dangling suppressions are reported, not repaired.
func (s *ScheduleService) Reconcile(ctx context.Context, horizonDays int) (ReconcileReport, error) {
	if horizonDays <= 0 {
		return ReconcileReport{}, fmt.Errorf("%w: horizon must be positive", domain.ErrValidation)
	}

	from := domain.TruncateToDate(s.clock())
	to := from.AddDate(0, 0, horizonDays)

	snap, err := s.snapshot(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	sessions, err := s.sessions.ListRange(ctx, from, to)
	if err != nil {
		return ReconcileReport{}, err
	}
	snap.Sessions = sessions

	if err := schedule.NewLedger(snap.Overrides).Verify(snap.Slots); err != nil {
		s.logger.Printf("reconcile: %v", err)
	}

	occurrences := schedule.Resolve(snap, snap.Owners(), from, to)
	occByOwner := make(map[domain.OwnerRef]map[string]domain.Occurrence)
	for _, occ := range occurrences {
		dates := occByOwner[occ.Owner]
		if dates == nil {
			dates = make(map[string]domain.Occurrence)
			occByOwner[occ.Owner] = dates
		}
		// First block wins when a day has several; session records key
		// on (owner, date) and follow the day's first meeting.
		if _, exists := dates[domain.DateKey(occ.Date)]; !exists {
			dates[domain.DateKey(occ.Date)] = occ
		}
	}

	var report ReconcileReport
	for _, owner := range snap.Owners() {
		resolved := occByOwner[owner]
		sessionDates := make(map[string]bool)
		var orphans []domain.Session

		for _, session := range snap.SessionsFor(owner) {
			key := domain.DateKey(session.Date)
			sessionDates[key] = true
			occ, ok := resolved[key]
			if !ok {
				orphans = append(orphans, session)
				continue
			}
			if session.StartTime != occ.StartTime || session.EndTime != occ.EndTime {
				if err := s.sessions.Reschedule(ctx, session, session.Date, occ.StartTime, occ.EndTime); err != nil {
					return report, err
				}
				report.Retimed++
			}
		}

		var vacant []domain.Occurrence
		for key, occ := range resolved {
			if !sessionDates[key] {
				vacant = append(vacant, occ)
			}
		}
		sort.Slice(vacant, func(i, j int) bool { return vacant[i].Date.Before(vacant[j].Date) })
		sort.Slice(orphans, func(i, j int) bool { return orphans[i].Date.Before(orphans[j].Date) })

		for i, orphan := range orphans {
			if i >= len(vacant) {
				report.Unmatched++
				s.logger.Printf("reconcile: session %s on %s matches no occurrence for %s",
					orphan.ID, domain.DateKey(orphan.Date), owner.ID)
				continue
			}
			target := vacant[i]
			if err := s.sessions.Reschedule(ctx, orphan, target.Date, target.StartTime, target.EndTime); err != nil {
				return report, err
			}
			report.Relocated++
		}
	}

	if report.Relocated > 0 || report.Retimed > 0 {
		event := domain.ChangeEvent{
			EventType: domain.EventSessionsReconciled,
			Payload: domain.ScheduleChangePayload{
				Dates: []string{domain.DateKey(from), domain.DateKey(to)},
			},
		}
		err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
			return repos.Outbox.Insert(ctx, event)
		})
		if err != nil {
			s.logger.Printf("reconcile: outbox append failed: %v", err)
		}
		s.notifier.Publish(event)
	}
	return report, nil
}

func moveEvent(eventType string, owner domain.OwnerRef, oldDate, newDate time.Time) domain.ChangeEvent {
	return domain.ChangeEvent{
		EventType: eventType,
		Payload: domain.ScheduleChangePayload{
			OwnerKind: string(owner.Kind),
			OwnerID:   owner.ID.String(),
			Dates:     []string{domain.DateKey(oldDate), domain.DateKey(newDate)},
		},
	}
}

func seriesEvent(owner domain.OwnerRef, oldWeekday, newWeekday int) domain.ChangeEvent {
	return domain.ChangeEvent{
		EventType: domain.EventScheduleSeriesMove,
		Payload: domain.ScheduleChangePayload{
			OwnerKind: string(owner.Kind),
			OwnerID:   owner.ID.String(),
			Dates:     []string{fmt.Sprintf("weekday:%d", oldWeekday), fmt.Sprintf("weekday:%d", newWeekday)},
		},
	}
}
