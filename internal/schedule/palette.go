package schedule

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// PaletteSize is the number of distinct display colors the weekly grid
// cycles through.
const PaletteSize = 12

// PaletteIndex maps an owner (or any stable id) to a palette slot. Pure and
// order-independent: the same id always lands on the same color no matter
// when it first appears in a roster.
func PaletteIndex(id uuid.UUID, paletteSize int) int {
	if paletteSize <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write(id[:])
	return int(h.Sum32() % uint32(paletteSize))
}
