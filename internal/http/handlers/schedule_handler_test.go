package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/repository/inmem"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/schedule"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/service"
)

type handlerFixture struct {
	store *inmem.Store
	mux   *http.ServeMux
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	store := inmem.NewStore()
	sync := service.NewSessionSynchronizer(inmem.NewSessionStore(store))
	svc := service.NewScheduleService(store, sync, schedule.NewNotifier(), log.New(io.Discard, "", 0))
	t.Cleanup(svc.Close)

	mux := http.NewServeMux()
	NewScheduleHandler(svc).Register(mux)
	return &handlerFixture{store: store, mux: mux}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func seedWednesdaySlot(f *handlerFixture) (domain.OwnerRef, domain.WeeklySlot) {
	owner := domain.OwnerRef{Kind: domain.OwnerKindClass, ID: uuid.New()}
	slot := domain.WeeklySlot{
		ID:        uuid.New(),
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		Weekday:   4,
		StartTime: "14:00",
		EndTime:   "15:30",
		Location:  "Room 101",
	}
	f.store.SeedSlot(slot)
	return owner, slot
}

func basePayload(owner domain.OwnerRef, slot domain.WeeklySlot, date string) occurrencePayload {
	return occurrencePayload{
		OwnerKind: string(owner.Kind),
		OwnerID:   owner.ID.String(),
		Date:      date,
		Weekday:   4,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Location:  slot.Location,
		Source:    string(domain.SourceBase),
		SlotID:    slot.ID.String(),
	}
}

func TestHandleWeekReturnsSevenDays(t *testing.T) {
	f := newHandlerFixture(t)
	owner, _ := seedWednesdaySlot(f)

	rec := f.do(t, http.MethodGet, "/schedule/week?owner_kind=class&owner_id="+owner.ID.String()+"&start=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp weekResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-06-03", resp.Start)
	require.Len(t, resp.Days, 7)

	wednesday := resp.Days[2]
	assert.Equal(t, "2024-06-05", wednesday.Date)
	require.Len(t, wednesday.Occurrences, 1)
	occ := wednesday.Occurrences[0]
	assert.Equal(t, "14:00", occ.StartTime)
	assert.Equal(t, 0, occ.Column)
	assert.Equal(t, 1, occ.TotalColumns)
	assert.GreaterOrEqual(t, occ.ColorIndex, 0)
	assert.Less(t, occ.ColorIndex, schedule.PaletteSize)

	assert.Empty(t, resp.Days[0].Occurrences, "empty days still serialize as arrays")
}

func TestHandleWeekRejectsBadInput(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/schedule/week?start=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/schedule/week?start=2024-06-03&owner_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/schedule/week?start=2024-06-03", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleMoveSingle(t *testing.T) {
	f := newHandlerFixture(t)
	owner, slot := seedWednesdaySlot(f)

	rec := f.do(t, http.MethodPost, "/schedule/move", moveRequest{
		Occurrence: basePayload(owner, slot, "2024-06-05"),
		TargetDate: "2024-06-07",
		Scope:      "single",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, overrides, _ := f.store.Snapshot()
	require.Len(t, overrides, 1)
	assert.Equal(t, "2024-06-07", domain.DateKey(overrides[0].Date))
	require.NotNil(t, overrides[0].ReplacesDate)
	assert.Equal(t, "2024-06-05", domain.DateKey(*overrides[0].ReplacesDate))
}

func TestHandleMoveSeries(t *testing.T) {
	f := newHandlerFixture(t)
	owner, slot := seedWednesdaySlot(f)

	rec := f.do(t, http.MethodPost, "/schedule/move", moveRequest{
		Occurrence: basePayload(owner, slot, "2024-06-05"),
		TargetDate: "2024-06-07", // a Friday; series scope reads only its weekday
		Scope:      "series",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	slots, _, _ := f.store.Snapshot()
	require.Len(t, slots, 1)
	assert.Equal(t, 6, slots[0].Weekday)
}

func TestHandleMoveValidation(t *testing.T) {
	f := newHandlerFixture(t)
	owner, slot := seedWednesdaySlot(f)
	valid := basePayload(owner, slot, "2024-06-05")

	rec := f.do(t, http.MethodPost, "/schedule/move", moveRequest{Occurrence: valid, TargetDate: "2024-06-07", Scope: "everything"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown scope")

	rec = f.do(t, http.MethodPost, "/schedule/move", moveRequest{Occurrence: valid, TargetDate: "07.06.2024", Scope: "single"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unparseable target date")

	mismatched := valid
	mismatched.Weekday = 5 // does not match 2024-06-05
	rec = f.do(t, http.MethodPost, "/schedule/move", moveRequest{Occurrence: mismatched, TargetDate: "2024-06-07", Scope: "single"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "weekday/date mismatch")

	rec = f.do(t, http.MethodPost, "/schedule/move", map[string]any{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestHandleMoveSeriesMissingSlotIs404(t *testing.T) {
	f := newHandlerFixture(t)
	owner, slot := seedWednesdaySlot(f)
	payload := basePayload(owner, slot, "2024-06-05")
	payload.SlotID = uuid.New().String()

	rec := f.do(t, http.MethodPost, "/schedule/move", moveRequest{
		Occurrence: payload,
		TargetDate: "2024-06-07",
		Scope:      "series",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEditSingle(t *testing.T) {
	f := newHandlerFixture(t)
	owner, slot := seedWednesdaySlot(f)

	rec := f.do(t, http.MethodPost, "/schedule/edit", editRequest{
		Occurrence:  basePayload(owner, slot, "2024-06-05"),
		NewStart:    "15:00",
		NewEnd:      "16:30",
		NewLocation: "Room 202",
		Scope:       "single",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, overrides, _ := f.store.Snapshot()
	require.Len(t, overrides, 1)
	assert.Equal(t, "15:00", overrides[0].StartTime)
	assert.Equal(t, "Room 202", overrides[0].Location)
	assert.Nil(t, overrides[0].ReplacesDate, "a same-date edit suppresses nothing")
}

func TestHandleRevert(t *testing.T) {
	f := newHandlerFixture(t)
	owner, slot := seedWednesdaySlot(f)

	rec := f.do(t, http.MethodPost, "/schedule/move", moveRequest{
		Occurrence: basePayload(owner, slot, "2024-06-05"),
		TargetDate: "2024-06-07",
		Scope:      "single",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, overrides, _ := f.store.Snapshot()
	require.Len(t, overrides, 1)

	moved := occurrencePayload{
		OwnerKind:  string(owner.Kind),
		OwnerID:    owner.ID.String(),
		Date:       "2024-06-07",
		Weekday:    6,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		Location:   slot.Location,
		Source:     string(domain.SourceOverride),
		OverrideID: overrides[0].ID.String(),
	}
	rec = f.do(t, http.MethodPost, "/schedule/revert", revertRequest{Occurrence: moved})
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, overrides, _ = f.store.Snapshot()
	assert.Empty(t, overrides)

	// Reverting again is a 404: the override is gone.
	rec = f.do(t, http.MethodPost, "/schedule/revert", revertRequest{Occurrence: moved})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRemoveSlot(t *testing.T) {
	f := newHandlerFixture(t)
	_, slot := seedWednesdaySlot(f)

	rec := f.do(t, http.MethodPost, "/schedule/slots/remove", removeSlotRequest{SlotID: slot.ID.String()})
	require.Equal(t, http.StatusNoContent, rec.Code)

	slots, _, _ := f.store.Snapshot()
	assert.Empty(t, slots)

	rec = f.do(t, http.MethodPost, "/schedule/slots/remove", removeSlotRequest{SlotID: slot.ID.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/schedule/slots/remove", removeSlotRequest{SlotID: "garbage"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReconcile(t *testing.T) {
	f := newHandlerFixture(t)
	seedWednesdaySlot(f)

	rec := f.do(t, http.MethodPost, "/schedule/reconcile", reconcileRequest{HorizonDays: 14})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Relocated)
	assert.Zero(t, resp.Retimed)
	assert.Zero(t, resp.Unmatched)

	rec = f.do(t, http.MethodPost, "/schedule/reconcile", map[string]any{"horizon_days": -3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWeekStoreFailureStillReads(t *testing.T) {
	// FailWrites only blocks writes; the read path must keep serving.
	f := newHandlerFixture(t)
	seedWednesdaySlot(f)
	f.store.FailWrites = true

	rec := f.do(t, http.MethodGet, "/schedule/week?start=2024-06-03", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
