package domain

import (
	"time"

	"github.com/google/uuid"
)

type OccurrenceSource string

const (
	SourceBase     OccurrenceSource = "base"
	SourceOverride OccurrenceSource = "override"
)

// Occurrence is the resolved, single authoritative meeting of an owner on a
// specific date. Computed, never persisted.
type Occurrence struct {
	Owner     OwnerRef
	Date      time.Time
	Weekday   int
	StartTime string
	EndTime   string
	Location  string
	Note      string
	Source    OccurrenceSource

	// SlotID is set when Source is base, OverrideID when Source is override.
	SlotID     uuid.UUID
	OverrideID uuid.UUID
}

// Key is stable across resolves of the same snapshot and unique within a
// day, which makes it usable as the layout map key and as a UI handle.
func (o Occurrence) Key() string {
	id := o.SlotID
	if o.Source == SourceOverride {
		id = o.OverrideID
	}
	return string(o.Owner.Kind) + "/" + o.Owner.ID.String() + "/" + DateKey(o.Date) + "/" + o.StartTime + "/" + id.String()
}

func (o Occurrence) Validate() error {
	if !o.Owner.Kind.Valid() {
		return errValidationf("unknown owner kind %q", string(o.Owner.Kind))
	}
	if o.Owner.ID == (uuid.UUID{}) {
		return errValidationf("missing owner id")
	}
	if o.Date.IsZero() {
		return errValidationf("missing date")
	}
	if o.Weekday != WeekdayOf(o.Date) {
		return errValidationf("weekday %d does not match date %s", o.Weekday, DateKey(o.Date))
	}
	if err := validateTimeRange(o.StartTime, o.EndTime); err != nil {
		return err
	}
	switch o.Source {
	case SourceBase:
		if o.SlotID == (uuid.UUID{}) {
			return errValidationf("base occurrence missing slot id")
		}
	case SourceOverride:
		if o.OverrideID == (uuid.UUID{}) {
			return errValidationf("override occurrence missing override id")
		}
	default:
		return errValidationf("unknown occurrence source %q", string(o.Source))
	}
	return nil
}
