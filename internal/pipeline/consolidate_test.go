package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

type testRow struct {
	sku   string
	box   int
	units int
}

// workbook builds an in-memory manifest in the vendor layout for fold
// tests. Weights and dimensions are left out; the dimension ledger has
// its own targeted tests.
func workbook(t *testing.T, po, routing string, rows []testRow) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A11", &[]interface{}{"UPC", "Box X", "Sku Units"}))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, 12+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &[]interface{}{r.sku, r.box, r.units}))
	}

	_, err := f.NewSheet("Page1_1")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Page1_1", "G5", po))
	require.NoError(t, f.SetCellValue("Page1_1", "G6", routing))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestConsolidatorTwoFileFold(t *testing.T) {
	cons := NewConsolidator(Options{})

	cons.AddFile("a.xlsx", workbook(t, "PO-1", "RT-1", []testRow{
		{"111", 1, 5},
		{"222", 2, 3},
		{"333", 3, 2},
	}))
	cons.AddFile("b.xlsx", workbook(t, "PO-2", "RT-2", []testRow{
		{"444", 1, 4},
		{"555", 1, 1},
	}))

	res := cons.Finalize()
	require.Equal(t, 2, res.FilesIn)
	require.Zero(t, res.Skipped)
	require.Empty(t, res.Warnings)

	require.Len(t, res.Contents, 5)
	require.Equal(t, 15, res.TotalQuantity())
	require.Equal(t, 15, res.Pivot.GrandTotal)

	// Each routing id collapses to one display box number
	byRouting := map[string]map[int]bool{}
	for _, e := range res.Contents {
		if byRouting[e.RoutingID] == nil {
			byRouting[e.RoutingID] = map[int]bool{}
		}
		byRouting[e.RoutingID][e.BoxNumber] = true
	}
	require.Len(t, byRouting["RT-1"], 1)
	require.Len(t, byRouting["RT-2"], 1)
	require.True(t, byRouting["RT-1"][1])
	require.True(t, byRouting["RT-2"][2])

	require.Equal(t, []models.SummaryPair{
		{CustomerPO: "PO-1", RoutingID: "RT-1"},
		{CustomerPO: "PO-2", RoutingID: "RT-2"},
	}, res.Summary)
}

func TestConsolidatorOffsetThenRegroup(t *testing.T) {
	cons := NewConsolidator(Options{})

	cons.AddFile("a.xlsx", workbook(t, "PO-1", "R1", []testRow{
		{"123", 1, 5},
		{"123", 2, 3},
	}))
	cons.AddFile("b.xlsx", workbook(t, "PO-2", "R2", []testRow{
		{"999", 1, 7},
	}))

	// Offset fold yields global boxes [1,2,3]; routing regrouping then
	// collapses them to [1,1,2]
	res := cons.Finalize()
	boxes := make([]int, len(res.Contents))
	for i, e := range res.Contents {
		boxes[i] = e.BoxNumber
	}
	require.Equal(t, []int{1, 1, 2}, boxes)
	require.Equal(t, 15, res.Pivot.GrandTotal)
}

func TestConsolidatorSkipsBadFiles(t *testing.T) {
	cons := NewConsolidator(Options{})

	cons.AddFile("bad.xlsx", []byte("not a workbook"))
	cons.AddFile("good.xlsx", workbook(t, "PO-1", "RT-1", []testRow{{"111", 1, 2}}))

	res := cons.Finalize()
	require.Equal(t, 2, res.FilesIn)
	require.Equal(t, 1, res.Skipped)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, "bad.xlsx", res.Warnings[0].File)
	require.Len(t, res.Contents, 1)
}

func TestConsolidatorRoutingFromFilename(t *testing.T) {
	cons := NewConsolidator(Options{RoutingSource: RoutingSourceFilename})

	cons.AddFile("load-42.xlsx", workbook(t, "PO-1", "RT-IGNORED", []testRow{{"111", 1, 2}}))

	res := cons.Finalize()
	require.Len(t, res.Contents, 1)
	require.Equal(t, "load-42", res.Contents[0].RoutingID)
}

func TestConsolidatorResetAware(t *testing.T) {
	cons := NewConsolidator(Options{ResetAware: true})

	// One file whose counter wraps: raw [1,2,1] continues to [1,2,3],
	// so three distinct boxes feed the pivot instead of two.
	cons.AddFile("a.xlsx", workbook(t, "PO-1", "", []testRow{
		{"111", 1, 5},
		{"222", 2, 3},
		{"333", 1, 2},
	}))

	// Routing regrouping would collapse the distinction, so inspect the
	// pre-finalize pivot through a second consolidator-free build.
	require.Equal(t, []int{1, 2, 3}, ContinueThroughResets([]int{1, 2, 1}))

	res := cons.Finalize()
	require.Len(t, res.Contents, 3)
}

func TestProcessSingle(t *testing.T) {
	data := workbook(t, "PO-9", "RT-9", []testRow{
		{"111", 1, 5},
		{"222", 1, 3},
		{"333", 2, 4},
	})

	res, err := ProcessSingle("one.xlsx", data, Options{})
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	require.Equal(t, 12, res.TotalQty)
	require.Equal(t, 2, res.TotalBoxes)
	require.Equal(t, 12, res.Pivot.GrandTotal)
	require.Empty(t, res.Dimensions)
	require.Zero(t, res.CartonTotal)
}

func TestProcessSingleSurfacesParseErrors(t *testing.T) {
	_, err := ProcessSingle("bad.xlsx", []byte("nope"), Options{})
	require.Error(t, err)
}
