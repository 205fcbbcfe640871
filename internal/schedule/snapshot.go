package schedule

import (
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

// Snapshot is an immutable view of the schedule stores. Resolution and
// layout are pure functions over it and may be recomputed on every change
// notification. Sessions are only populated when the caller needs them
// (reconciliation); resolution ignores them.
type Snapshot struct {
	Slots     []domain.WeeklySlot
	Overrides []domain.Override
	Sessions  []domain.Session
}

func (s Snapshot) SlotsFor(owner domain.OwnerRef) []domain.WeeklySlot {
	var out []domain.WeeklySlot
	for _, slot := range s.Slots {
		if slot.Owner() == owner {
			out = append(out, slot)
		}
	}
	return out
}

func (s Snapshot) SessionsFor(owner domain.OwnerRef) []domain.Session {
	var out []domain.Session
	for _, sess := range s.Sessions {
		if sess.Owner() == owner {
			out = append(out, sess)
		}
	}
	return out
}

// Owners returns every distinct owner appearing in the snapshot, slots
// first, in first-seen order.
func (s Snapshot) Owners() []domain.OwnerRef {
	seen := make(map[domain.OwnerRef]bool)
	var out []domain.OwnerRef
	add := func(owner domain.OwnerRef) {
		if !seen[owner] {
			seen[owner] = true
			out = append(out, owner)
		}
	}
	for _, slot := range s.Slots {
		add(slot.Owner())
	}
	for _, ov := range s.Overrides {
		add(ov.Owner())
	}
	for _, sess := range s.Sessions {
		add(sess.Owner())
	}
	return out
}
