package domain

import (
	"github.com/google/uuid"
)

// WeeklySlot is one recurring time block of an owner's base weekly schedule.
// An owner may hold several slots on the same weekday (distinct time blocks).
type WeeklySlot struct {
	ID        uuid.UUID
	OwnerKind OwnerKind `validate:"required,oneof=class staff"`
	OwnerID   uuid.UUID `validate:"required"`
	Weekday   int       `validate:"min=2,max=8"`
	StartTime string    `validate:"required"`
	EndTime   string    `validate:"required"`
	Location  string
}

func (s WeeklySlot) Owner() OwnerRef {
	return OwnerRef{Kind: s.OwnerKind, ID: s.OwnerID}
}

func (s WeeklySlot) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}
	if err := validateTimeRange(s.StartTime, s.EndTime); err != nil {
		return err
	}
	return nil
}
