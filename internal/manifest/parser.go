package manifest

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// dimensionPattern matches the LxWxH text the vendor embeds in free-form
// cells, e.g. "12.5X10.0X8.25". Anchored at the start of the cell; trailing
// text is tolerated here and rejected at parse time.
var dimensionPattern = regexp.MustCompile(`^\d{1,3}\.\d{1,2}X\d{1,3}\.\d{1,2}X\d{1,3}\.\d{1,2}\b`)

// Options controls where the parser looks inside a manifest workbook.
// Zero values are filled in by Defaults.
type Options struct {
	HeaderRow     int    // 0-indexed row of the detail table header
	MetadataSheet string // sheet holding PO/routing cells and bold weights
	POCell        string
	RoutingCell   string
	WeightColumn  string
	SKUColumn     string
	BoxColumn     string
	UnitsColumn   string
}

// Defaults returns the fixed SMW manifest layout.
func Defaults() Options {
	return Options{
		HeaderRow:     10,
		MetadataSheet: "Page1_1",
		POCell:        "G5",
		RoutingCell:   "G6",
		WeightColumn:  "G",
		SKUColumn:     "UPC",
		BoxColumn:     "Box X",
		UnitsColumn:   "Sku Units",
	}
}

// RawDetailRow is one detail-table line before normalization.
type RawDetailRow struct {
	SKU      string
	BoxIndex string
	Units    string
}

// File is everything extracted from one source manifest.
type File struct {
	Name       string
	Rows       []models.DetailRow
	CustomerPO string
	RoutingID  string
	Weights    []string
	Dimensions []models.Dimension
}

// UnreadableInputError means the bytes could not be opened as a workbook.
type UnreadableInputError struct {
	Name string
	Err  error
}

func (e *UnreadableInputError) Error() string {
	return fmt.Sprintf("cannot read %s as a workbook: %v", e.Name, e.Err)
}

func (e *UnreadableInputError) Unwrap() error { return e.Err }

// MissingColumnsError means the detail table lacks required columns after
// header normalization. The caller skips the file and continues.
type MissingColumnsError struct {
	Name    string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("file %s missing columns: %s", e.Name, strings.Join(e.Missing, ", "))
}

// Parse extracts the detail table, header metadata, bold weight cells and
// dimension matches from one manifest workbook.
func Parse(name string, data []byte, opts Options) (*File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &UnreadableInputError{Name: name, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &UnreadableInputError{Name: name, Err: errors.New("workbook has no sheets")}
	}
	detailSheet := sheets[0]

	rows, err := f.GetRows(detailSheet)
	if err != nil {
		return nil, &UnreadableInputError{Name: name, Err: err}
	}
	if len(rows) <= opts.HeaderRow {
		return nil, &MissingColumnsError{Name: name, Missing: []string{opts.SKUColumn, opts.BoxColumn, opts.UnitsColumn}}
	}

	// Header names are whitespace-trimmed before matching.
	colIndex := map[string]int{}
	for i, h := range rows[opts.HeaderRow] {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, seen := colIndex[h]; !seen {
			colIndex[h] = i
		}
	}

	var missing []string
	for _, c := range []string{opts.SKUColumn, opts.BoxColumn, opts.UnitsColumn} {
		if _, ok := colIndex[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Name: name, Missing: missing}
	}

	detail := rows[opts.HeaderRow+1:]
	raw := make([]RawDetailRow, 0, len(detail))
	for _, r := range detail {
		raw = append(raw, RawDetailRow{
			SKU:      cellAt(r, colIndex[opts.SKUColumn]),
			BoxIndex: cellAt(r, colIndex[opts.BoxColumn]),
			Units:    cellAt(r, colIndex[opts.UnitsColumn]),
		})
	}

	out := &File{
		Name:       name,
		Rows:       NormalizeRows(raw),
		Dimensions: scanDimensions(detail),
	}

	// Metadata and weights are optional enrichments; failures degrade to
	// empty values instead of surfacing.
	metaSheet := detailSheet
	for _, s := range sheets {
		if s == opts.MetadataSheet {
			metaSheet = s
			break
		}
	}
	out.CustomerPO, _ = f.GetCellValue(metaSheet, opts.POCell)
	out.RoutingID, _ = f.GetCellValue(metaSheet, opts.RoutingCell)
	out.Weights = boldWeights(f, metaSheet, opts.WeightColumn)

	return out, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// scanDimensions walks every cell of the detail region looking for LxWxH
// text. Matches that do not split into exactly three numbers are skipped.
func scanDimensions(detail [][]string) []models.Dimension {
	var dims []models.Dimension
	for _, row := range detail {
		for _, val := range row {
			if !dimensionPattern.MatchString(val) {
				continue
			}
			parts := strings.Split(val, "X")
			if len(parts) != 3 {
				continue
			}
			l, err1 := strconv.ParseFloat(parts[0], 64)
			w, err2 := strconv.ParseFloat(parts[1], 64)
			h, err3 := strconv.ParseFloat(parts[2], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}
			dims = append(dims, models.Dimension{Length: l, Width: w, Height: h})
		}
	}
	return dims
}

// boldWeights collects the non-empty bold cells of the weight column, top
// to bottom. The last bold cell is a subtotal footer by convention and is
// excluded.
func boldWeights(f *excelize.File, sheet, column string) []string {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil
	}

	var weights []string
	for i := 1; i <= len(rows); i++ {
		cell := fmt.Sprintf("%s%d", column, i)
		val, err := f.GetCellValue(sheet, cell)
		if err != nil || val == "" {
			continue
		}
		styleID, err := f.GetCellStyle(sheet, cell)
		if err != nil {
			continue
		}
		style, err := f.GetStyle(styleID)
		if err != nil || style == nil || style.Font == nil || !style.Font.Bold {
			continue
		}
		weights = append(weights, val)
	}
	if len(weights) > 0 {
		weights = weights[:len(weights)-1]
	}
	return weights
}
