package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

func TestBuildPivot(t *testing.T) {
	entries := []models.BoxEntry{
		{SKU: "b", BoxNumber: 1, Quantity: 4},
		{SKU: "a", BoxNumber: 2, Quantity: 6},
		{SKU: "b", BoxNumber: 1, Quantity: 1}, // same cell sums
		{SKU: "a", BoxNumber: 1, Quantity: 0},
	}

	p := BuildPivot(entries, false)

	require.Equal(t, []string{"a", "b"}, p.SKUs)
	require.Equal(t, []int{1, 2}, p.Boxes)

	require.Equal(t, 5, p.Cell("b", 1))
	require.Equal(t, 6, p.Cell("a", 2))
	require.Equal(t, 0, p.Cell("a", 1))

	require.Equal(t, 6, p.RowTotals["a"])
	require.Equal(t, 5, p.RowTotals["b"])
	require.Equal(t, 5, p.ColTotals[1])
	require.Equal(t, 6, p.ColTotals[2])
	require.Equal(t, 11, p.GrandTotal)
}

func TestPivotDisplayViewBlanksZeros(t *testing.T) {
	entries := []models.BoxEntry{
		{SKU: "a", BoxNumber: 1, Quantity: 0},
		{SKU: "a", BoxNumber: 2, Quantity: 3},
	}

	p := BuildPivot(entries, false)

	// Totals view keeps the zero; display view blanks it
	require.Equal(t, 0, p.Cell("a", 1))
	require.Equal(t, "", p.DisplayCell("a", 1))
	require.Equal(t, 3, p.DisplayCell("a", 2))
	require.Equal(t, 3, p.GrandTotal)
}

func TestPivotDropZeroColumns(t *testing.T) {
	entries := []models.BoxEntry{
		{SKU: "a", BoxNumber: 1, Quantity: 2},
		{SKU: "a", BoxNumber: 2, Quantity: 0},
		{SKU: "b", BoxNumber: 3, Quantity: 7},
	}

	p := BuildPivot(entries, true)

	require.Equal(t, []int{1, 3}, p.Boxes)
	_, kept := p.ColTotals[2]
	require.False(t, kept)
	require.Equal(t, 9, p.GrandTotal)
}
