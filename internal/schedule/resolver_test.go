package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := domain.ParseDate(value)
	require.NoError(t, err)
	return parsed
}

func classOwner() domain.OwnerRef {
	return domain.OwnerRef{Kind: domain.OwnerKindClass, ID: uuid.New()}
}

func slotFor(owner domain.OwnerRef, weekday int, start, end string) domain.WeeklySlot {
	return domain.WeeklySlot{
		ID:        uuid.New(),
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		Weekday:   weekday,
		StartTime: start,
		EndTime:   end,
		Location:  "Room 101",
	}
}

func TestResolveBaseWeeklySlot(t *testing.T) {
	owner := classOwner()
	slot := slotFor(owner, 4, "14:00", "15:30") // Wednesdays
	snap := Snapshot{Slots: []domain.WeeklySlot{slot}}

	occs := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-03"), date(t, "2024-06-09"))

	require.Len(t, occs, 1)
	occ := occs[0]
	assert.True(t, domain.SameDate(date(t, "2024-06-05"), occ.Date))
	assert.Equal(t, 4, occ.Weekday)
	assert.Equal(t, "14:00", occ.StartTime)
	assert.Equal(t, "15:30", occ.EndTime)
	assert.Equal(t, domain.SourceBase, occ.Source)
	assert.Equal(t, slot.ID, occ.SlotID)
}

func TestResolveSpansMultipleWeeks(t *testing.T) {
	owner := classOwner()
	slot := slotFor(owner, 4, "14:00", "15:30")
	snap := Snapshot{Slots: []domain.WeeklySlot{slot}}

	occs := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-03"), date(t, "2024-06-16"))

	require.Len(t, occs, 2)
	assert.True(t, domain.SameDate(date(t, "2024-06-05"), occs[0].Date))
	assert.True(t, domain.SameDate(date(t, "2024-06-12"), occs[1].Date))
}

func TestResolveMultipleBlocksSameWeekday(t *testing.T) {
	owner := classOwner()
	morning := slotFor(owner, 4, "09:00", "10:30")
	afternoon := slotFor(owner, 4, "14:00", "15:30")
	snap := Snapshot{Slots: []domain.WeeklySlot{morning, afternoon}}

	occs := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-05"), date(t, "2024-06-05"))

	require.Len(t, occs, 2, "distinct time blocks are never merged")
	assert.Equal(t, "09:00", occs[0].StartTime)
	assert.Equal(t, "14:00", occs[1].StartTime)
}

func TestResolveOverrideWinsOverBase(t *testing.T) {
	owner := classOwner()
	slot := slotFor(owner, 4, "14:00", "15:30")
	override := domain.Override{
		ID:        uuid.New(),
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		Date:      date(t, "2024-06-05"),
		Weekday:   4,
		StartTime: "16:00",
		EndTime:   "17:30",
	}
	snap := Snapshot{Slots: []domain.WeeklySlot{slot}, Overrides: []domain.Override{override}}

	occs := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-05"), date(t, "2024-06-05"))

	require.Len(t, occs, 1, "base and override never co-occur on one date")
	assert.Equal(t, domain.SourceOverride, occs[0].Source)
	assert.Equal(t, "16:00", occs[0].StartTime)
	assert.Equal(t, override.ID, occs[0].OverrideID)
}

func TestResolveSuppressedDateEmitsNothing(t *testing.T) {
	owner := classOwner()
	slot := slotFor(owner, 4, "14:00", "15:30")
	rootDate := date(t, "2024-06-05")
	rootWeekday := 4
	moved := domain.Override{
		ID:              uuid.New(),
		OwnerKind:       owner.Kind,
		OwnerID:         owner.ID,
		Date:            date(t, "2024-06-07"),
		Weekday:         6,
		StartTime:       "14:00",
		EndTime:         "15:30",
		ReplacesDate:    &rootDate,
		ReplacesWeekday: &rootWeekday,
	}
	snap := Snapshot{Slots: []domain.WeeklySlot{slot}, Overrides: []domain.Override{moved}}

	wednesday := Resolve(snap, []domain.OwnerRef{owner}, rootDate, rootDate)
	assert.Empty(t, wednesday, "suppressed base occurrence must not appear")

	friday := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-07"), date(t, "2024-06-07"))
	require.Len(t, friday, 1)
	assert.Equal(t, domain.SourceOverride, friday[0].Source)
	assert.Equal(t, "14:00", friday[0].StartTime)

	nextWednesday := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-12"), date(t, "2024-06-12"))
	require.Len(t, nextWednesday, 1, "only the replaced date is suppressed, not the series")
}

func TestResolveAdHocOverrideWithoutBaseSlot(t *testing.T) {
	owner := classOwner()
	adHoc := domain.Override{
		ID:        uuid.New(),
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		Date:      date(t, "2024-06-08"),
		Weekday:   7,
		StartTime: "10:00",
		EndTime:   "11:00",
	}
	snap := Snapshot{Overrides: []domain.Override{adHoc}}

	occs := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-03"), date(t, "2024-06-09"))

	require.Len(t, occs, 1, "an override with no matching slot is an ad hoc addition")
	assert.Equal(t, domain.SourceOverride, occs[0].Source)
}

func TestResolveBoundaryOverrideAcrossLocations(t *testing.T) {
	// An ad hoc override scanned from the store at UTC midnight must still
	// resolve when the requested range ends on that civil date in another
	// zone.
	owner := classOwner()
	adHoc := domain.Override{
		ID:        uuid.New(),
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		Date:      time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), // Sunday
		Weekday:   8,
		StartTime: "10:00",
		EndTime:   "11:00",
	}
	snap := Snapshot{Overrides: []domain.Override{adHoc}}

	zone := time.FixedZone("UTC+7", 7*60*60)
	from := time.Date(2024, 6, 3, 0, 0, 0, 0, zone)
	to := time.Date(2024, 6, 9, 0, 0, 0, 0, zone)

	occs := Resolve(snap, []domain.OwnerRef{owner}, from, to)
	require.Len(t, occs, 1)
	assert.Equal(t, "2024-06-09", domain.DateKey(occs[0].Date))
}

func TestResolveSuppressionAcrossLocations(t *testing.T) {
	// The same location split on a moved occurrence: the suppression still
	// hides the base date and the replacement still emits.
	owner := classOwner()
	slot := slotFor(owner, 4, "14:00", "15:30")
	rootDate := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	rootWeekday := 4
	moved := domain.Override{
		ID:              uuid.New(),
		OwnerKind:       owner.Kind,
		OwnerID:         owner.ID,
		Date:            time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC),
		Weekday:         6,
		StartTime:       "14:00",
		EndTime:         "15:30",
		ReplacesDate:    &rootDate,
		ReplacesWeekday: &rootWeekday,
	}
	snap := Snapshot{Slots: []domain.WeeklySlot{slot}, Overrides: []domain.Override{moved}}

	zone := time.FixedZone("UTC+7", 7*60*60)
	from := time.Date(2024, 6, 3, 0, 0, 0, 0, zone)
	to := time.Date(2024, 6, 9, 0, 0, 0, 0, zone)

	occs := Resolve(snap, []domain.OwnerRef{owner}, from, to)
	require.Len(t, occs, 1)
	assert.Equal(t, domain.SourceOverride, occs[0].Source)
	assert.Equal(t, "2024-06-07", domain.DateKey(occs[0].Date))
}

func TestResolveAtMostOneOccurrencePerDate(t *testing.T) {
	owner := classOwner()
	slot := slotFor(owner, 4, "14:00", "15:30")
	override := domain.Override{
		ID:        uuid.New(),
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		Date:      date(t, "2024-06-05"),
		Weekday:   4,
		StartTime: "14:00",
		EndTime:   "15:30",
	}
	snap := Snapshot{Slots: []domain.WeeklySlot{slot}, Overrides: []domain.Override{override}}

	occs := Resolve(snap, []domain.OwnerRef{owner}, date(t, "2024-06-03"), date(t, "2024-06-16"))

	perDate := make(map[string]int)
	for _, occ := range occs {
		perDate[domain.DateKey(occ.Date)]++
	}
	for key, count := range perDate {
		assert.Equal(t, 1, count, "date %s", key)
	}
}

func TestResolveIgnoresOtherOwners(t *testing.T) {
	ownerA := classOwner()
	ownerB := classOwner()
	snap := Snapshot{Slots: []domain.WeeklySlot{
		slotFor(ownerA, 4, "14:00", "15:30"),
		slotFor(ownerB, 4, "14:00", "15:30"),
	}}

	occs := Resolve(snap, []domain.OwnerRef{ownerA}, date(t, "2024-06-05"), date(t, "2024-06-05"))

	require.Len(t, occs, 1)
	assert.Equal(t, ownerA, occs[0].Owner)
}
