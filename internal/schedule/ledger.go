package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

type ledgerKey struct {
	kind    domain.OwnerKind
	owner   uuid.UUID
	date    string
	weekday int
}

func keyOf(owner domain.OwnerRef, date time.Time, weekday int) ledgerKey {
	return ledgerKey{kind: owner.Kind, owner: owner.ID, date: domain.DateKey(date), weekday: weekday}
}

// Ledger holds an immutable override snapshot plus the two derived lookup
// indices resolution needs: by an override's own (owner, date, weekday) key
// and by the (owner, replacesDate, replacesWeekday) key it suppresses.
// Indices are rebuilt wholesale from each snapshot; record counts stay small
// enough that rebuild-on-change is the simplest correct choice.
type Ledger struct {
	overrides    []domain.Override
	byOwn        map[ledgerKey]domain.Override
	bySuppressed map[ledgerKey]domain.Override
}

func NewLedger(overrides []domain.Override) *Ledger {
	l := &Ledger{
		overrides:    overrides,
		byOwn:        make(map[ledgerKey]domain.Override, len(overrides)),
		bySuppressed: make(map[ledgerKey]domain.Override),
	}
	for _, ov := range overrides {
		l.byOwn[keyOf(ov.Owner(), ov.Date, ov.Weekday)] = ov
		if ov.ReplacesDate != nil {
			l.bySuppressed[keyOf(ov.Owner(), *ov.ReplacesDate, *ov.ReplacesWeekday)] = ov
		}
	}
	return l
}

// DirectFor returns the override standing on (owner, date, weekday) itself.
func (l *Ledger) DirectFor(owner domain.OwnerRef, date time.Time, weekday int) (domain.Override, bool) {
	ov, ok := l.byOwn[keyOf(owner, date, weekday)]
	return ov, ok
}

// Suppressed reports whether some override declares the base occurrence on
// (owner, date, weekday) as replaced.
func (l *Ledger) Suppressed(owner domain.OwnerRef, date time.Time, weekday int) bool {
	_, ok := l.bySuppressed[keyOf(owner, date, weekday)]
	return ok
}

// SuppressorOf returns the override that suppresses (owner, date, weekday).
func (l *Ledger) SuppressorOf(owner domain.OwnerRef, date time.Time, weekday int) (domain.Override, bool) {
	ov, ok := l.bySuppressed[keyOf(owner, date, weekday)]
	return ov, ok
}

// ForOwnerInRange returns the owner's overrides dated within [from, to],
// in input order. The bounds are compared as civil dates: stored dates may
// carry a different location than the query bounds.
func (l *Ledger) ForOwnerInRange(owner domain.OwnerRef, from, to time.Time) []domain.Override {
	fromKey, toKey := domain.DateKey(from), domain.DateKey(to)
	var out []domain.Override
	for _, ov := range l.overrides {
		if ov.Owner() != owner {
			continue
		}
		if key := domain.DateKey(ov.Date); key < fromKey || key > toKey {
			continue
		}
		out = append(out, ov)
	}
	return out
}

// Verify checks every suppression against the base schedule: an override
// that claims to replace a base occurrence whose weekday carries no slot for
// that owner is a dangling suppression and a consistency error. Findings are
// reported, not repaired.
func (l *Ledger) Verify(slots []domain.WeeklySlot) error {
	slotWeekdays := make(map[domain.OwnerRef]map[int]bool)
	for _, slot := range slots {
		wd := slotWeekdays[slot.Owner()]
		if wd == nil {
			wd = make(map[int]bool)
			slotWeekdays[slot.Owner()] = wd
		}
		wd[slot.Weekday] = true
	}

	var dangling []string
	for _, ov := range l.overrides {
		if ov.ReplacesDate == nil {
			continue
		}
		if !slotWeekdays[ov.Owner()][*ov.ReplacesWeekday] {
			dangling = append(dangling,
				fmt.Sprintf("override %s suppresses %s (weekday %d) but owner has no slot on that weekday",
					ov.ID, domain.DateKey(*ov.ReplacesDate), *ov.ReplacesWeekday))
		}
	}
	if len(dangling) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d dangling suppression(s): %v", domain.ErrConsistency, len(dangling), dangling)
}
