package pipeline

import (
	"sort"
	"strings"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// RegroupByRouting finalizes the consolidated ledger for display: entries
// are stably sorted by Customer PO (case-insensitive ascending), then box
// numbers are reassigned by routing identity — every distinct routing id,
// the empty string included, gets a class number in order of first
// appearance, superseding whatever the renumbering policy produced.
//
// It also derives the Summary list: deduplicated (Customer PO, Routing #)
// pairs in the same first-appearance order.
func RegroupByRouting(entries []models.BoxEntry) ([]models.BoxEntry, []models.SummaryPair) {
	if len(entries) == 0 {
		return nil, nil
	}

	sorted := make([]models.BoxEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].CustomerPO) < strings.ToLower(sorted[j].CustomerPO)
	})

	groups := map[string]int{}
	next := 1
	var summary []models.SummaryPair
	seenPairs := map[models.SummaryPair]bool{}

	for i := range sorted {
		r := sorted[i].RoutingID
		g, ok := groups[r]
		if !ok {
			g = next
			groups[r] = g
			next++
		}
		sorted[i].BoxNumber = g

		pair := models.SummaryPair{CustomerPO: sorted[i].CustomerPO, RoutingID: r}
		if !seenPairs[pair] {
			seenPairs[pair] = true
			summary = append(summary, pair)
		}
	}

	return sorted, summary
}
