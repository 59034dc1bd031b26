package pipeline

import (
	"sort"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// Pivot is the cross-tabulation of summed quantity by (SKU, box number).
// Cells hold the totals view: zeros are real integers and every total is
// computed from it. DisplayCell renders the blank-for-zero display view.
type Pivot struct {
	SKUs       []string
	Boxes      []int
	cells      map[string]map[int]int
	RowTotals  map[string]int
	ColTotals  map[int]int
	GrandTotal int
}

// BuildPivot cross-tabulates the consolidated ledger. SKU rows and box
// columns are sorted ascending. With dropZeroColumns set, box columns
// whose total is zero are removed before the views are derived.
func BuildPivot(entries []models.BoxEntry, dropZeroColumns bool) *Pivot {
	p := &Pivot{
		cells:     map[string]map[int]int{},
		RowTotals: map[string]int{},
		ColTotals: map[int]int{},
	}

	skuSet := map[string]bool{}
	boxSet := map[int]bool{}
	for _, e := range entries {
		if p.cells[e.SKU] == nil {
			p.cells[e.SKU] = map[int]int{}
		}
		p.cells[e.SKU][e.BoxNumber] += e.Quantity
		skuSet[e.SKU] = true
		boxSet[e.BoxNumber] = true
	}

	for sku := range skuSet {
		p.SKUs = append(p.SKUs, sku)
	}
	sort.Strings(p.SKUs)
	for box := range boxSet {
		p.Boxes = append(p.Boxes, box)
	}
	sort.Ints(p.Boxes)

	for _, box := range p.Boxes {
		for _, sku := range p.SKUs {
			p.ColTotals[box] += p.cells[sku][box]
		}
	}
	if dropZeroColumns {
		var boxes []int
		for _, box := range p.Boxes {
			if p.ColTotals[box] != 0 {
				boxes = append(boxes, box)
			} else {
				delete(p.ColTotals, box)
			}
		}
		p.Boxes = boxes
	}

	for _, sku := range p.SKUs {
		for _, box := range p.Boxes {
			p.RowTotals[sku] += p.cells[sku][box]
		}
		p.GrandTotal += p.RowTotals[sku]
	}

	return p
}

// Cell returns the totals-view value for one (sku, box) pair.
func (p *Pivot) Cell(sku string, box int) int {
	return p.cells[sku][box]
}

// DisplayCell returns the display-view rendering: zero cells are blank.
func (p *Pivot) DisplayCell(sku string, box int) interface{} {
	v := p.cells[sku][box]
	if v == 0 {
		return ""
	}
	return v
}
