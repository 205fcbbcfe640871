package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Override is a date-specific exception to an owner's weekly schedule. It
// either stands in for a suppressed base occurrence (ReplacesDate set) or
// adds an ad hoc one. Weekday is derived from Date and stored alongside it
// so both lookup indices key on (owner, date, weekday) without recomputing.
type Override struct {
	ID        uuid.UUID
	OwnerKind OwnerKind `validate:"required,oneof=class staff"`
	OwnerID   uuid.UUID `validate:"required"`
	Date      time.Time `validate:"required"`
	Weekday   int       `validate:"min=2,max=8"`
	StartTime string    `validate:"required"`
	EndTime   string    `validate:"required"`
	Location  string
	Note      string

	// ReplacesDate/ReplacesWeekday point at the base occurrence this
	// override stands in for. Nil for ad hoc additions.
	ReplacesDate    *time.Time
	ReplacesWeekday *int
}

func (o Override) Owner() OwnerRef {
	return OwnerRef{Kind: o.OwnerKind, ID: o.OwnerID}
}

func (o Override) Validate() error {
	if err := validateStruct(o); err != nil {
		return err
	}
	if err := validateTimeRange(o.StartTime, o.EndTime); err != nil {
		return err
	}
	if o.Weekday != WeekdayOf(o.Date) {
		return fmt.Errorf("%w: weekday %d does not match date %s", ErrValidation, o.Weekday, DateKey(o.Date))
	}
	if (o.ReplacesDate == nil) != (o.ReplacesWeekday == nil) {
		return fmt.Errorf("%w: replaces_date and replaces_weekday must be set together", ErrValidation)
	}
	if o.ReplacesDate != nil {
		if *o.ReplacesWeekday < 2 || *o.ReplacesWeekday > 8 {
			return fmt.Errorf("%w: replaces_weekday %d out of range", ErrValidation, *o.ReplacesWeekday)
		}
		if *o.ReplacesWeekday != WeekdayOf(*o.ReplacesDate) {
			return fmt.Errorf("%w: replaces_weekday %d does not match replaces_date %s",
				ErrValidation, *o.ReplacesWeekday, DateKey(*o.ReplacesDate))
		}
	}
	return nil
}
