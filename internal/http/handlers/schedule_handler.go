package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/schedule"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/service"
)

type ScheduleHandler struct {
	service *service.ScheduleService
}

func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

func (h *ScheduleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/schedule/week", h.handleWeek)
	mux.HandleFunc("/schedule/move", h.handleMove)
	mux.HandleFunc("/schedule/edit", h.handleEdit)
	mux.HandleFunc("/schedule/revert", h.handleRevert)
	mux.HandleFunc("/schedule/slots/remove", h.handleRemoveSlot)
	mux.HandleFunc("/schedule/reconcile", h.handleReconcile)
}

type occurrencePayload struct {
	OwnerKind  string `json:"owner_kind"`
	OwnerID    string `json:"owner_id"`
	Date       string `json:"date"`
	Weekday    int    `json:"weekday"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Location   string `json:"location,omitempty"`
	Note       string `json:"note,omitempty"`
	Source     string `json:"source"`
	SlotID     string `json:"slot_id,omitempty"`
	OverrideID string `json:"override_id,omitempty"`
}

func (p occurrencePayload) toDomain() (domain.Occurrence, error) {
	ownerID, err := uuid.Parse(p.OwnerID)
	if err != nil {
		return domain.Occurrence{}, domain.ErrValidation
	}
	date, err := domain.ParseDate(p.Date)
	if err != nil {
		return domain.Occurrence{}, err
	}
	occ := domain.Occurrence{
		Owner:     domain.OwnerRef{Kind: domain.OwnerKind(p.OwnerKind), ID: ownerID},
		Date:      date,
		Weekday:   p.Weekday,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Location:  p.Location,
		Note:      p.Note,
		Source:    domain.OccurrenceSource(p.Source),
	}
	if p.SlotID != "" {
		if occ.SlotID, err = uuid.Parse(p.SlotID); err != nil {
			return domain.Occurrence{}, domain.ErrValidation
		}
	}
	if p.OverrideID != "" {
		if occ.OverrideID, err = uuid.Parse(p.OverrideID); err != nil {
			return domain.Occurrence{}, domain.ErrValidation
		}
	}
	if err := occ.Validate(); err != nil {
		return domain.Occurrence{}, err
	}
	return occ, nil
}

func occurrenceToPayload(occ domain.Occurrence) occurrencePayload {
	p := occurrencePayload{
		OwnerKind: string(occ.Owner.Kind),
		OwnerID:   occ.Owner.ID.String(),
		Date:      domain.DateKey(occ.Date),
		Weekday:   occ.Weekday,
		StartTime: occ.StartTime,
		EndTime:   occ.EndTime,
		Location:  occ.Location,
		Note:      occ.Note,
		Source:    string(occ.Source),
	}
	if occ.SlotID != (uuid.UUID{}) {
		p.SlotID = occ.SlotID.String()
	}
	if occ.OverrideID != (uuid.UUID{}) {
		p.OverrideID = occ.OverrideID.String()
	}
	return p
}

type weekOccurrence struct {
	occurrencePayload
	Key          string `json:"key"`
	Column       int    `json:"column"`
	TotalColumns int    `json:"total_columns"`
	ColorIndex   int    `json:"color_index"`
}

type weekDayResponse struct {
	Date        string           `json:"date"`
	Occurrences []weekOccurrence `json:"occurrences"`
}

type weekResponse struct {
	Start string            `json:"start"`
	Days  []weekDayResponse `json:"days"`
}

func (h *ScheduleHandler) handleWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	kind := domain.OwnerKind(query.Get("owner_kind"))
	if kind == "" {
		kind = domain.OwnerKindClass
	}

	var ownerID *uuid.UUID
	if raw := query.Get("owner_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest)
			return
		}
		ownerID = &parsed
	}

	start, err := domain.ParseDate(query.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	week, err := h.service.WeekView(r.Context(), kind, ownerID, start)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := weekResponse{Start: domain.DateKey(week.Start)}
	for _, day := range week.Days {
		dayResp := weekDayResponse{Date: domain.DateKey(day.Date), Occurrences: []weekOccurrence{}}
		for _, occ := range day.Occurrences {
			placement := day.Placements[occ.Key()]
			dayResp.Occurrences = append(dayResp.Occurrences, weekOccurrence{
				occurrencePayload: occurrenceToPayload(occ),
				Key:               occ.Key(),
				Column:            placement.Column,
				TotalColumns:      placement.TotalColumns,
				ColorIndex:        schedule.PaletteIndex(occ.Owner.ID, schedule.PaletteSize),
			})
		}
		response.Days = append(response.Days, dayResp)
	}

	writeJSON(w, http.StatusOK, response)
}

type moveRequest struct {
	Occurrence occurrencePayload `json:"occurrence"`
	TargetDate string            `json:"target_date"`
	Scope      string            `json:"scope"`
}

func (h *ScheduleHandler) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodePost(w, r, &req) {
		return
	}

	occ, err := req.Occurrence.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}
	targetDate, err := domain.ParseDate(req.TargetDate)
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	switch req.Scope {
	case "single":
		err = h.service.MoveSingle(r.Context(), occ, targetDate)
	case "series":
		err = h.service.MoveSeries(r.Context(), occ, domain.WeekdayOf(targetDate))
	default:
		writeError(w, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type editRequest struct {
	Occurrence  occurrencePayload `json:"occurrence"`
	NewStart    string            `json:"new_start"`
	NewEnd      string            `json:"new_end"`
	NewLocation string            `json:"new_location"`
	Scope       string            `json:"scope"`
}

func (h *ScheduleHandler) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodePost(w, r, &req) {
		return
	}

	occ, err := req.Occurrence.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	switch req.Scope {
	case "single":
		err = h.service.EditSingle(r.Context(), occ, req.NewStart, req.NewEnd, req.NewLocation)
	case "series":
		err = h.service.EditSeries(r.Context(), occ, req.NewStart, req.NewEnd, req.NewLocation)
	default:
		writeError(w, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type revertRequest struct {
	Occurrence occurrencePayload `json:"occurrence"`
}

func (h *ScheduleHandler) handleRevert(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if !decodePost(w, r, &req) {
		return
	}

	occ, err := req.Occurrence.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}
	if err := h.service.RevertSingle(r.Context(), occ); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type removeSlotRequest struct {
	SlotID string `json:"slot_id"`
}

func (h *ScheduleHandler) handleRemoveSlot(w http.ResponseWriter, r *http.Request) {
	var req removeSlotRequest
	if !decodePost(w, r, &req) {
		return
	}

	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}
	if err := h.service.RemoveSlot(r.Context(), slotID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reconcileRequest struct {
	HorizonDays int `json:"horizon_days"`
}

type reconcileResponse struct {
	Relocated int `json:"relocated"`
	Retimed   int `json:"retimed"`
	Unmatched int `json:"unmatched"`
}

func (h *ScheduleHandler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.HorizonDays == 0 {
		req.HorizonDays = 60
	}

	report, err := h.service.Reconcile(r.Context(), req.HorizonDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileResponse{
		Relocated: report.Relocated,
		Retimed:   report.Retimed,
		Unmatched: report.Unmatched,
	})
}

func decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound)
	case errors.Is(err, domain.ErrConsistency):
		writeError(w, http.StatusConflict)
	case errors.Is(err, domain.ErrStore):
		writeError(w, http.StatusBadGateway)
	default:
		writeError(w, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("{}"))
}
