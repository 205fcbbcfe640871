package domain

import "github.com/google/uuid"

// OwnerKind distinguishes the two roster kinds that carry recurring
// schedules: teaching classes and staff duty assignments. Both run through
// the same slot/override machinery.
type OwnerKind string

const (
	OwnerKindClass OwnerKind = "class"
	OwnerKindStaff OwnerKind = "staff"
)

func (k OwnerKind) Valid() bool {
	return k == OwnerKindClass || k == OwnerKindStaff
}

// OwnerRef identifies the entity a slot, override, occurrence or session
// belongs to.
type OwnerRef struct {
	Kind OwnerKind
	ID   uuid.UUID
}
