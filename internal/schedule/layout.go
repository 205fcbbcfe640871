package schedule

import (
	"sort"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

// Placement assigns an occurrence to one of TotalColumns side-by-side
// columns inside the day grid.
type Placement struct {
	Column       int
	TotalColumns int
}

// Layout packs one day's occurrences into non-colliding display columns,
// keyed by Occurrence.Key.
//
// Occurrences are placed greedily in start-time order (lexical on the
// fixed-width HH:MM strings, owner/record key as the stable tie-break), each
// taking the lowest column unused by any strictly-overlapping placed
// occurrence. A fixup pass then propagates TotalColumns across every
// mutually-overlapping pair until a fixpoint, so a chain like A~B, B~C with
// A and C disjoint still agrees on one group width. Daily counts are small;
// the quadratic passes are fine.
func Layout(occurrences []domain.Occurrence) map[string]Placement {
	ordered := make([]domain.Occurrence, len(occurrences))
	copy(ordered, occurrences)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartTime != ordered[j].StartTime {
			return ordered[i].StartTime < ordered[j].StartTime
		}
		return ordered[i].Key() < ordered[j].Key()
	})

	type placed struct {
		occ   domain.Occurrence
		col   int
		total int
	}
	items := make([]*placed, 0, len(ordered))

	for _, occ := range ordered {
		used := make(map[int]bool)
		maxNeighbor := -1
		for _, prior := range items {
			if !overlaps(occ, prior.occ) {
				continue
			}
			used[prior.col] = true
			if prior.col > maxNeighbor {
				maxNeighbor = prior.col
			}
		}
		col := 0
		for used[col] {
			col++
		}
		total := col + 1
		if maxNeighbor+1 > total {
			total = maxNeighbor + 1
		}
		items = append(items, &placed{occ: occ, col: col, total: total})
	}

	for changed := true; changed; {
		changed = false
		for i := range items {
			for j := i + 1; j < len(items); j++ {
				if !overlaps(items[i].occ, items[j].occ) {
					continue
				}
				width := items[i].total
				if items[j].total > width {
					width = items[j].total
				}
				if items[i].total != width || items[j].total != width {
					items[i].total = width
					items[j].total = width
					changed = true
				}
			}
		}
	}

	out := make(map[string]Placement, len(items))
	for _, item := range items {
		out[item.occ.Key()] = Placement{Column: item.col, TotalColumns: item.total}
	}
	return out
}

func overlaps(a, b domain.Occurrence) bool {
	return domain.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
}
