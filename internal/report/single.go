package report

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/orvilledev/smw-spd-formatter/internal/pipeline"
)

type singleStyles struct {
	header  int
	body    int
	decimal int
	footer  int
}

func newSingleStyles(f *excelize.File) (singleStyles, error) {
	var s singleStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	intFmt := "0"
	decFmt := "0.00"

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
		Border:    border,
		Alignment: center,
	})
	if err != nil {
		return s, err
	}
	s.body, err = f.NewStyle(&excelize.Style{
		Border:       border,
		Alignment:    center,
		CustomNumFmt: &intFmt,
	})
	if err != nil {
		return s, err
	}
	s.decimal, err = f.NewStyle(&excelize.Style{
		Border:       border,
		Alignment:    center,
		CustomNumFmt: &decFmt,
	})
	if err != nil {
		return s, err
	}
	s.footer, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Border:    border,
		Alignment: center,
	})
	return s, err
}

// WriteSingle renders the single-file variant: cleaned box contents with a
// totals footer, the pivot on its own sheet, and the dimensions table with
// the carton weight total plus the pallet allowance.
func WriteSingle(res *pipeline.SingleResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetContents); err != nil {
		return nil, errors.Wrap(err, "failed to name contents sheet")
	}
	st, err := newSingleStyles(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create styles")
	}

	for i, h := range []string{"UPC", "Box Number", "Qty"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetContents, cell, h)
		f.SetCellStyle(sheetContents, cell, cell, st.header)
	}
	for r, e := range res.Rows {
		for c, v := range []interface{}{e.SKU, e.BoxNumber, e.Quantity} {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetContents, cell, v)
			f.SetCellStyle(sheetContents, cell, cell, st.body)
		}
	}

	// Totals footer two rows below the table.
	totalRow := len(res.Rows) + 3
	writeFooterPair(f, st, sheetContents, totalRow, "Total Qty:", res.TotalQty)
	writeFooterPair(f, st, sheetContents, totalRow+1, "Total Boxes:", res.TotalBoxes)

	if _, err := f.NewSheet(sheetPivot); err != nil {
		return nil, errors.Wrap(err, "failed to create pivot sheet")
	}
	writeSinglePivot(f, st, res.Pivot)

	if len(res.Dimensions) > 0 {
		if err := writeSingleDimensions(f, st, res); err != nil {
			return nil, err
		}
	}

	for i := 1; i <= 8; i++ {
		name, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth(sheetContents, name, name, 18)
	}
	// Pivot columns stay narrow so wide cross-tabs remain readable.
	f.SetColWidth(sheetPivot, "A", "A", 25)
	if n := len(res.Pivot.Boxes); n > 0 {
		last, _ := excelize.ColumnNumberToName(n + 1)
		f.SetColWidth(sheetPivot, "B", last, 4.5)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize workbook")
	}
	return buf.Bytes(), nil
}

func writeFooterPair(f *excelize.File, st singleStyles, sheet string, row int, label string, value int) {
	labelCell, _ := excelize.CoordinatesToCellName(1, row)
	valueCell, _ := excelize.CoordinatesToCellName(2, row)
	f.SetCellValue(sheet, labelCell, label)
	f.SetCellValue(sheet, valueCell, value)
	f.SetCellStyle(sheet, labelCell, valueCell, st.footer)
}

func writeSinglePivot(f *excelize.File, st singleStyles, p *pipeline.Pivot) {
	f.SetCellValue(sheetPivot, "A1", "UPC")
	f.SetCellStyle(sheetPivot, "A1", "A1", st.header)
	for i, box := range p.Boxes {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		f.SetCellValue(sheetPivot, cell, box)
		f.SetCellStyle(sheetPivot, cell, cell, st.header)
	}
	for r, sku := range p.SKUs {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		f.SetCellValue(sheetPivot, cell, sku)
		f.SetCellStyle(sheetPivot, cell, cell, st.body)
		for c, box := range p.Boxes {
			cell, _ := excelize.CoordinatesToCellName(c+2, r+2)
			f.SetCellValue(sheetPivot, cell, p.DisplayCell(sku, box))
			f.SetCellStyle(sheetPivot, cell, cell, st.body)
		}
	}
}

func writeSingleDimensions(f *excelize.File, st singleStyles, res *pipeline.SingleResult) error {
	if _, err := f.NewSheet(sheetDimensions); err != nil {
		return errors.Wrap(err, "failed to create dimensions sheet")
	}

	for i, h := range []string{"Box Number", "Carton Weight", "Length", "Width", "Height"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetDimensions, cell, h)
		f.SetCellStyle(sheetDimensions, cell, cell, st.header)
	}
	for r, d := range res.Dimensions {
		values := []interface{}{d.BoxNumber, weightValue(d.Weight), d.Dims.Length, d.Dims.Width, d.Dims.Height}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetDimensions, cell, v)
			style := st.decimal
			if c == 0 {
				style = st.body
			}
			f.SetCellStyle(sheetDimensions, cell, cell, style)
		}
	}

	footerRow := len(res.Dimensions) + 2
	labelCell, _ := excelize.CoordinatesToCellName(1, footerRow)
	valueCell, _ := excelize.CoordinatesToCellName(2, footerRow)
	f.SetCellValue(sheetDimensions, labelCell, "Total Carton Weight (+35):")
	f.SetCellValue(sheetDimensions, valueCell, res.CartonTotal+palletAllowance)
	f.SetCellStyle(sheetDimensions, labelCell, valueCell, st.footer)

	for i := 1; i <= 5; i++ {
		name, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth(sheetDimensions, name, name, 18)
	}
	f.SetColWidth(sheetDimensions, "A", "A", 30)
	return nil
}
