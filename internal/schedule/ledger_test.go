package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

func TestLedgerDirectAndSuppressedLookup(t *testing.T) {
	owner := classOwner()
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
	ledger := NewLedger([]domain.Override{moved})

	direct, ok := ledger.DirectFor(owner, date(t, "2024-06-07"), 6)
	require.True(t, ok)
	assert.Equal(t, moved.ID, direct.ID)

	_, ok = ledger.DirectFor(owner, rootDate, rootWeekday)
	assert.False(t, ok, "the replaced date has no direct override")

	assert.True(t, ledger.Suppressed(owner, rootDate, rootWeekday))
	assert.False(t, ledger.Suppressed(owner, date(t, "2024-06-12"), rootWeekday),
		"suppression is per-date, not per-series")

	suppressor, ok := ledger.SuppressorOf(owner, rootDate, rootWeekday)
	require.True(t, ok)
	assert.Equal(t, moved.ID, suppressor.ID)
}

func TestLedgerForOwnerInRange(t *testing.T) {
	owner := classOwner()
	other := classOwner()
	inRange := domain.Override{
		ID: uuid.New(), OwnerKind: owner.Kind, OwnerID: owner.ID,
		Date: date(t, "2024-06-05"), Weekday: 4, StartTime: "14:00", EndTime: "15:30",
	}
	before := domain.Override{
		ID: uuid.New(), OwnerKind: owner.Kind, OwnerID: owner.ID,
		Date: date(t, "2024-05-29"), Weekday: 4, StartTime: "14:00", EndTime: "15:30",
	}
	foreign := domain.Override{
		ID: uuid.New(), OwnerKind: other.Kind, OwnerID: other.ID,
		Date: date(t, "2024-06-05"), Weekday: 4, StartTime: "14:00", EndTime: "15:30",
	}
	ledger := NewLedger([]domain.Override{before, inRange, foreign})

	got := ledger.ForOwnerInRange(owner, date(t, "2024-06-03"), date(t, "2024-06-09"))
	require.Len(t, got, 1)
	assert.Equal(t, inRange.ID, got[0].ID)
}

func TestLedgerRangeComparesCivilDates(t *testing.T) {
	// Stored dates come back from Postgres at UTC midnight while query
	// bounds are built in the server's zone; the range filter must compare
	// civil dates, not instants.
	owner := classOwner()
	boundary := domain.Override{
		ID: uuid.New(), OwnerKind: owner.Kind, OwnerID: owner.ID,
		Date:    time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), // Sunday
		Weekday: 8, StartTime: "10:00", EndTime: "11:00",
	}
	ledger := NewLedger([]domain.Override{boundary})

	zone := time.FixedZone("UTC+7", 7*60*60)
	from := time.Date(2024, 6, 3, 0, 0, 0, 0, zone)
	to := time.Date(2024, 6, 9, 0, 0, 0, 0, zone)

	got := ledger.ForOwnerInRange(owner, from, to)
	require.Len(t, got, 1, "override on the last day of the range must not be dropped")
	assert.Equal(t, boundary.ID, got[0].ID)
}

func TestLedgerVerifyReportsDanglingSuppression(t *testing.T) {
	owner := classOwner()
	rootDate := date(t, "2024-06-05")
	rootWeekday := 4
	moved := domain.Override{
		ID: uuid.New(), OwnerKind: owner.Kind, OwnerID: owner.ID,
		Date: date(t, "2024-06-07"), Weekday: 6, StartTime: "14:00", EndTime: "15:30",
		ReplacesDate: &rootDate, ReplacesWeekday: &rootWeekday,
	}

	withSlot := []domain.WeeklySlot{slotFor(owner, 4, "14:00", "15:30")}
	assert.NoError(t, NewLedger([]domain.Override{moved}).Verify(withSlot))

	err := NewLedger([]domain.Override{moved}).Verify(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConsistency)
}

func TestLedgerVerifyIgnoresAdHocOverrides(t *testing.T) {
	owner := classOwner()
	adHoc := domain.Override{
		ID: uuid.New(), OwnerKind: owner.Kind, OwnerID: owner.ID,
		Date: date(t, "2024-06-08"), Weekday: 7, StartTime: "10:00", EndTime: "11:00",
	}
	assert.NoError(t, NewLedger([]domain.Override{adHoc}).Verify(nil))
}
