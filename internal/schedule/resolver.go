package schedule

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

// Resolve computes the effective occurrences for the given owners over the
// inclusive date range [from, to].
//
// Per owner and date the precedence is:
//  1. a direct override on (owner, date, weekday) wins and shadows every
//     base block that day;
//  2. a suppression entry for (owner, date, weekday) hides the base block
//     without emitting anything;
//  3. otherwise every weekday-matching slot emits its own base occurrence.
//
// Overrides whose weekday has no base slot still emit (ad hoc additions).
func Resolve(snap Snapshot, owners []domain.OwnerRef, from, to time.Time) []domain.Occurrence {
	from = domain.TruncateToDate(from)
	to = domain.TruncateToDate(to)
	if to.Before(from) {
		return nil
	}

	ledger := NewLedger(snap.Overrides)
	var out []domain.Occurrence

	for _, owner := range owners {
		for _, ov := range ledger.ForOwnerInRange(owner, from, to) {
			out = append(out, occurrenceFromOverride(ov))
		}
		for _, slot := range snap.SlotsFor(owner) {
			// weeklyDates yields dates on slot.Weekday, so the direct
			// index key lines up with the override's own (date, weekday).
			for _, date := range weeklyDates(slot.Weekday, from, to) {
				if _, ok := ledger.DirectFor(owner, date, slot.Weekday); ok {
					continue
				}
				if ledger.Suppressed(owner, date, slot.Weekday) {
					continue
				}
				out = append(out, occurrenceFromSlot(slot, date))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Key() < b.Key()
	})
	return out
}

// ResolveDate is Resolve narrowed to a single day.
func ResolveDate(snap Snapshot, owners []domain.OwnerRef, date time.Time) []domain.Occurrence {
	return Resolve(snap, owners, date, date)
}

func occurrenceFromOverride(ov domain.Override) domain.Occurrence {
	return domain.Occurrence{
		Owner:      ov.Owner(),
		Date:       domain.TruncateToDate(ov.Date),
		Weekday:    ov.Weekday,
		StartTime:  ov.StartTime,
		EndTime:    ov.EndTime,
		Location:   ov.Location,
		Note:       ov.Note,
		Source:     domain.SourceOverride,
		OverrideID: ov.ID,
	}
}

func occurrenceFromSlot(slot domain.WeeklySlot, date time.Time) domain.Occurrence {
	return domain.Occurrence{
		Owner:     slot.Owner(),
		Date:      domain.TruncateToDate(date),
		Weekday:   slot.Weekday,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Location:  slot.Location,
		Source:    domain.SourceBase,
		SlotID:    slot.ID,
	}
}

// weeklyDates enumerates the dates in [from, to] falling on the given 2..8
// weekday, as a WEEKLY recurrence anchored at the range start.
func weeklyDates(weekday int, from, to time.Time) []time.Time {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   from,
		Byweekday: []rrule.Weekday{rruleWeekday(weekday)},
	})
	if err != nil {
		return nil
	}
	return rule.Between(from, to, true)
}

func rruleWeekday(weekday int) rrule.Weekday {
	switch weekday {
	case 2:
		return rrule.MO
	case 3:
		return rrule.TU
	case 4:
		return rrule.WE
	case 5:
		return rrule.TH
	case 6:
		return rrule.FR
	case 7:
		return rrule.SA
	default:
		return rrule.SU
	}
}
