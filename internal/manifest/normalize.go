package manifest

import (
	"strconv"
	"strings"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

const skuWidth = 12

// NormalizeSKU cleans a raw SKU/UPC cell into the canonical 12-digit form:
// the ".0" artifact left by numeric cells is stripped, "+" characters are
// removed, and the result is left-padded with zeros.
func NormalizeSKU(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".0")
	s = strings.ReplaceAll(s, "+", "")
	for len(s) < skuWidth {
		s = "0" + s
	}
	return s
}

// ParseQuantity coerces a units cell into a non-negative integer.
// Unparseable values come back as 0.
func ParseQuantity(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

// ParseBoxIndex coerces a box index cell into an integer.
func ParseBoxIndex(raw string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// NormalizeRows converts the raw (sku, box, units) cells of one file into
// clean detail rows. Rows with an empty SKU or empty units cell are
// dropped before any further processing. This step is file-local.
func NormalizeRows(raw []RawDetailRow) []models.DetailRow {
	rows := make([]models.DetailRow, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.SKU) == "" || strings.TrimSpace(r.Units) == "" {
			continue
		}
		box, ok := ParseBoxIndex(r.BoxIndex)
		if !ok {
			continue
		}
		rows = append(rows, models.DetailRow{
			SKU:      NormalizeSKU(r.SKU),
			RawBox:   box,
			Quantity: ParseQuantity(r.Units),
		})
	}
	return rows
}
