package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/orvilledev/smw-spd-formatter/internal/pipeline"
)

const (
	sheetAllContents   = "All Box Contents"
	sheetAllDimensions = "All Box Dimensions"
	sheetSummary       = "Summary"

	sheetContents   = "Box Contents"
	sheetPivot      = "Pivot Table"
	sheetDimensions = "Box Dimensions"

	// Column J: the pivot sits to the right of the detail columns.
	pivotStartCol = 10

	// Fixed pallet allowance added to the carton weight total.
	palletAllowance = 35
)

// OutputName encodes the processed file count into the artifact name.
func OutputName(fileCount int) string {
	return fmt.Sprintf("SMW-BC-Output-%d-ITEMS.xlsx", fileCount)
}

// SingleOutputName derives the single-file artifact name from the input.
func SingleOutputName(inputName string) string {
	ext := filepath.Ext(inputName)
	base := strings.TrimSuffix(inputName, ext)
	return base + " formatted" + ext
}

type consolidatedStyles struct {
	header  int
	special int
	normal  int
	ok      int
	bad     int
}

func newConsolidatedStyles(f *excelize.File) (consolidatedStyles, error) {
	var s consolidatedStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E3D3A8"}, Pattern: 1},
		Border:    border,
		Alignment: center,
	})
	if err != nil {
		return s, err
	}
	s.special, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E09DDF"}, Pattern: 1},
		Border:    border,
		Alignment: center,
	})
	if err != nil {
		return s, err
	}
	s.normal, err = f.NewStyle(&excelize.Style{Border: border, Alignment: center})
	if err != nil {
		return s, err
	}
	s.ok, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "000000"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#92D050"}, Pattern: 1},
		Border:    border,
		Alignment: center,
	})
	if err != nil {
		return s, err
	}
	s.bad, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "000000"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FF0000"}, Pattern: 1},
		Border:    border,
		Alignment: center,
	})
	return s, err
}

// WriteConsolidated renders the consolidated run into a styled workbook:
// the box-contents table with the pivot embedded to its right, the merged
// dimensions table, and the PO/routing summary.
func WriteConsolidated(res *pipeline.Result, includeCustomerPO bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetAllContents); err != nil {
		return nil, errors.Wrap(err, "failed to name contents sheet")
	}

	st, err := newConsolidatedStyles(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create styles")
	}

	headers := []string{"UPC", "Box Number", "Qty"}
	if includeCustomerPO {
		headers = append(headers, "Customer PO")
	}
	headers = append(headers, "Routing #")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetAllContents, cell, h)
		style := st.header
		if h == "Routing #" {
			style = st.special
		}
		f.SetCellStyle(sheetAllContents, cell, cell, style)
	}

	for r, e := range res.Contents {
		values := []interface{}{e.SKU, e.BoxNumber, e.Quantity}
		if includeCustomerPO {
			values = append(values, e.CustomerPO)
		}
		values = append(values, e.RoutingID)
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetAllContents, cell, v)
			f.SetCellStyle(sheetAllContents, cell, cell, st.normal)
		}
	}

	pivotTotalRow := writePivot(f, st, res.Pivot)

	if includeCustomerPO {
		writeSortStatus(f, st, res, pivotTotalRow)
	}

	if len(res.Dimensions) > 0 {
		if err := writeDimensions(f, st, res, sheetAllDimensions); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, errors.Wrap(err, "failed to create summary sheet")
	}
	summaryHeaders := []string{"Customer PO", "Routing #"}
	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetSummary, cell, h)
		style := st.header
		if h == "Routing #" {
			style = st.special
		}
		f.SetCellStyle(sheetSummary, cell, cell, style)
	}
	for r, p := range res.Summary {
		poCell, _ := excelize.CoordinatesToCellName(1, r+2)
		routingCell, _ := excelize.CoordinatesToCellName(2, r+2)
		f.SetCellValue(sheetSummary, poCell, p.CustomerPO)
		f.SetCellValue(sheetSummary, routingCell, p.RoutingID)
		f.SetCellStyle(sheetSummary, poCell, routingCell, st.normal)
	}

	for _, sheet := range f.GetSheetList() {
		fitColumnWidths(f, sheet)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize workbook")
	}
	return buf.Bytes(), nil
}

// writePivot embeds the cross-tab at column J of the contents sheet and
// returns the row carrying the "Total per Box" band.
func writePivot(f *excelize.File, st consolidatedStyles, p *pipeline.Pivot) int {
	if len(p.SKUs) == 0 {
		return 1
	}

	cell, _ := excelize.CoordinatesToCellName(pivotStartCol, 1)
	f.SetCellValue(sheetAllContents, cell, "UPC")
	f.SetCellStyle(sheetAllContents, cell, cell, st.header)

	for i, box := range p.Boxes {
		cell, _ := excelize.CoordinatesToCellName(pivotStartCol+1+i, 1)
		f.SetCellValue(sheetAllContents, cell, fmt.Sprintf("Box %d", box))
		f.SetCellStyle(sheetAllContents, cell, cell, st.header)
	}

	totalCol := pivotStartCol + len(p.Boxes) + 1
	cell, _ = excelize.CoordinatesToCellName(totalCol, 1)
	f.SetCellValue(sheetAllContents, cell, "Total per UPC")
	f.SetCellStyle(sheetAllContents, cell, cell, st.special)

	for r, sku := range p.SKUs {
		cell, _ := excelize.CoordinatesToCellName(pivotStartCol, r+2)
		f.SetCellValue(sheetAllContents, cell, sku)
		f.SetCellStyle(sheetAllContents, cell, cell, st.normal)
		for c, box := range p.Boxes {
			cell, _ := excelize.CoordinatesToCellName(pivotStartCol+1+c, r+2)
			// Display view: zeros render blank. Totals below come from
			// the totals view, never from these cells.
			f.SetCellValue(sheetAllContents, cell, p.DisplayCell(sku, box))
			f.SetCellStyle(sheetAllContents, cell, cell, st.normal)
		}
		cell, _ = excelize.CoordinatesToCellName(totalCol, r+2)
		f.SetCellValue(sheetAllContents, cell, p.RowTotals[sku])
		f.SetCellStyle(sheetAllContents, cell, cell, st.normal)
	}

	totalRow := len(p.SKUs) + 2
	cell, _ = excelize.CoordinatesToCellName(pivotStartCol, totalRow)
	f.SetCellValue(sheetAllContents, cell, "Total per Box")
	f.SetCellStyle(sheetAllContents, cell, cell, st.special)
	for c, box := range p.Boxes {
		cell, _ := excelize.CoordinatesToCellName(pivotStartCol+1+c, totalRow)
		f.SetCellValue(sheetAllContents, cell, p.ColTotals[box])
		f.SetCellStyle(sheetAllContents, cell, cell, st.normal)
	}
	cell, _ = excelize.CoordinatesToCellName(totalCol, totalRow)
	f.SetCellValue(sheetAllContents, cell, p.GrandTotal)
	f.SetCellStyle(sheetAllContents, cell, cell, st.special)

	return totalRow
}

// writeSortStatus appends the green/red cell stating whether the Customer
// PO column came out alphabetically arranged.
func writeSortStatus(f *excelize.File, st consolidatedStyles, res *pipeline.Result, pivotTotalRow int) {
	var pos []string
	for _, e := range res.Contents {
		if e.CustomerPO != "" {
			pos = append(pos, e.CustomerPO)
		}
	}
	arranged := sort.SliceIsSorted(pos, func(i, j int) bool {
		return strings.ToLower(pos[i]) < strings.ToLower(pos[j])
	})

	lastRow := len(res.Contents) + 1
	if pivotTotalRow > lastRow {
		lastRow = pivotTotalRow
	}
	cell, _ := excelize.CoordinatesToCellName(4, lastRow+2)
	if arranged {
		f.SetCellValue(sheetAllContents, cell, "POs are alphabetically arranged")
		f.SetCellStyle(sheetAllContents, cell, cell, st.ok)
	} else {
		f.SetCellValue(sheetAllContents, cell, "POs are NOT alphabetically arranged")
		f.SetCellStyle(sheetAllContents, cell, cell, st.bad)
	}
}

func writeDimensions(f *excelize.File, st consolidatedStyles, res *pipeline.Result, sheet string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, "failed to create dimensions sheet")
	}

	headers := []string{"Box Number", "Weight", "Length", "Width", "Height", "Routing #"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		style := st.header
		if h == "Routing #" {
			style = st.special
		}
		f.SetCellStyle(sheet, cell, cell, style)
	}

	for r, d := range res.Dimensions {
		values := []interface{}{d.BoxNumber, weightValue(d.Weight), "", "", "", d.RoutingID}
		if d.Dims != nil {
			values[2] = d.Dims.Length
			values[3] = d.Dims.Width
			values[4] = d.Dims.Height
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
			f.SetCellStyle(sheet, cell, cell, st.normal)
		}
	}
	return nil
}

// weightValue writes numeric weights as numbers and keeps annotated ones
// as text.
func weightValue(w string) interface{} {
	if w == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(w, 64); err == nil {
		return v
	}
	return w
}

// fitColumnWidths sizes each used column to its longest value plus
// padding, with a floor of 12.
func fitColumnWidths(f *excelize.File, sheet string) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return
	}
	maxLens := map[int]int{}
	for _, row := range rows {
		for c, val := range row {
			if l := len(val); l > maxLens[c] {
				maxLens[c] = l
			}
		}
	}
	for c, l := range maxLens {
		width := float64(l + 5)
		if width < 12 {
			width = 12
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			continue
		}
		f.SetColWidth(sheet, name, name, width)
	}
}
