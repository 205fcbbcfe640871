package domain

// ChangeEvent is appended to the outbox whenever a schedule write is
// acknowledged, and fanned out in-process so subscribers drop their cached
// snapshot and re-resolve.
type ChangeEvent struct {
	EventType string
	Payload   any
}

const (
	EventScheduleMoved      = "ScheduleOccurrenceMoved"
	EventScheduleSeriesMove = "ScheduleSeriesMoved"
	EventScheduleEdited     = "ScheduleEdited"
	EventScheduleReverted   = "ScheduleOverrideReverted"
	EventSlotRemoved        = "ScheduleSlotRemoved"
	EventSessionsReconciled = "SessionsReconciled"
)

type ScheduleChangePayload struct {
	OwnerKind string
	OwnerID   string
	Dates     []string
}
