package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSKU(t *testing.T) {
	// Numeric cells export with a trailing ".0"
	require.Equal(t, "000123456789", NormalizeSKU("123456789.0"))

	// Plus signs are stripped before padding
	require.Equal(t, "000000004567", NormalizeSKU("+4567"))

	// Already 12 digits passes through unchanged
	require.Equal(t, "885909950805", NormalizeSKU("885909950805"))

	// Longer values are never truncated
	require.Equal(t, "1234567890123", NormalizeSKU("1234567890123"))

	// Surrounding whitespace is ignored
	require.Equal(t, "000000000042", NormalizeSKU("  42  "))
}

func TestParseQuantity(t *testing.T) {
	require.Equal(t, 12, ParseQuantity("12"))
	require.Equal(t, 12, ParseQuantity("12.0"))

	// Unparseable and negative values coerce to zero
	require.Equal(t, 0, ParseQuantity("n/a"))
	require.Equal(t, 0, ParseQuantity(""))
	require.Equal(t, 0, ParseQuantity("-3"))
}

func TestParseBoxIndex(t *testing.T) {
	box, ok := ParseBoxIndex("7.0")
	require.True(t, ok)
	require.Equal(t, 7, box)

	_, ok = ParseBoxIndex("seven")
	require.False(t, ok)
}

func TestNormalizeRowsDropsBlankRows(t *testing.T) {
	raw := []RawDetailRow{
		{SKU: "123.0", BoxIndex: "1", Units: "10"},
		{SKU: "", BoxIndex: "2", Units: "5"},     // no SKU
		{SKU: "456", BoxIndex: "2", Units: "  "}, // no units
		{SKU: "789", BoxIndex: "", Units: "4"},   // no box index
		{SKU: "456.0", BoxIndex: "2", Units: "junk"},
	}

	rows := NormalizeRows(raw)
	require.Len(t, rows, 2)

	require.Equal(t, "000000000123", rows[0].SKU)
	require.Equal(t, 1, rows[0].RawBox)
	require.Equal(t, 10, rows[0].Quantity)

	// Unparseable units survive as a zero-quantity row
	require.Equal(t, "000000000456", rows[1].SKU)
	require.Equal(t, 0, rows[1].Quantity)
}
