package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the attendance record tied to one resolved occurrence. It is
// owned by the attendance subsystem; this engine only reads it and keeps its
// date/time fields in sync when occurrences move. The attendance payload
// itself never passes through here.
type Session struct {
	ID        uuid.UUID
	OwnerKind OwnerKind
	OwnerID   uuid.UUID
	Date      time.Time
	StartTime string
	EndTime   string
}

func (s Session) Owner() OwnerRef {
	return OwnerRef{Kind: s.OwnerKind, ID: s.OwnerID}
}
