package pipeline

import (
	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// CorrelateFile aligns one file's independently extracted weight scalars
// and dimension triples to box numbers. There is no key joining them: the
// Nth weight pairs with the Nth triple purely by extraction order, and the
// shorter lists are right-padded with blanks up to
// max(len(weights), len(dims), detailRows). Any extraction that drops or
// duplicates an entry silently misaligns every later box; that fragility
// is inherited from the source layout, not repaired here.
func CorrelateFile(weights []string, dims []models.Dimension, detailRows, startBox int, routingID string) []models.DimensionRow {
	n := len(weights)
	if len(dims) > n {
		n = len(dims)
	}
	if detailRows > n {
		n = detailRows
	}

	rows := make([]models.DimensionRow, 0, n)
	for i := 0; i < n; i++ {
		row := models.DimensionRow{
			BoxNumber: startBox + i,
			RoutingID: routingID,
		}
		if i < len(weights) {
			row.Weight = weights[i]
		}
		if i < len(dims) {
			d := dims[i]
			row.Dims = &d
		}
		rows = append(rows, row)
	}
	return rows
}

// FinalizeDimensions applies the post-merge policy to the combined
// dimension ledger: incomplete rows are dropped, rows are deduplicated by
// routing id keeping the first, reordered to match the routing order the
// Summary list established, and renumbered 1..M.
func FinalizeDimensions(rows []models.DimensionRow, summary []models.SummaryPair) []models.DimensionRow {
	order := map[string]int{}
	for i, p := range summary {
		if _, ok := order[p.RoutingID]; !ok {
			order[p.RoutingID] = i
		}
	}

	seen := map[string]bool{}
	var kept []models.DimensionRow
	for _, r := range rows {
		if !r.Complete() {
			continue
		}
		if seen[r.RoutingID] {
			continue
		}
		seen[r.RoutingID] = true
		kept = append(kept, r)
	}

	if len(order) > 0 {
		// Stable partition by summary position; routing ids the summary
		// never saw sort last in their original order.
		ordered := make([]models.DimensionRow, 0, len(kept))
		for pos := 0; pos < len(summary); pos++ {
			for _, r := range kept {
				if idx, ok := order[r.RoutingID]; ok && idx == pos {
					ordered = append(ordered, r)
				}
			}
		}
		for _, r := range kept {
			if _, ok := order[r.RoutingID]; !ok {
				ordered = append(ordered, r)
			}
		}
		kept = ordered
	}

	for i := range kept {
		kept[i].BoxNumber = i + 1
	}
	return kept
}
