package pipeline

import (
	"strconv"

	"github.com/orvilledev/smw-spd-formatter/internal/manifest"
	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// SingleResult is the outcome of single-file (LTL) processing.
type SingleResult struct {
	Rows        []models.BoxEntry
	Pivot       *Pivot
	Dimensions  []models.DimensionRow
	TotalQty    int
	TotalBoxes  int
	CartonTotal float64 // sum of the numeric carton weights, before the pallet allowance
}

// ProcessSingle runs the single-file variant: one manifest in, cleaned box
// contents, a pivot and a dimensions table out. Unlike the batch fold,
// parse errors surface to the caller here — there is no batch to continue
// with. The reset-aware continuation applies when configured; otherwise
// raw box indices are kept verbatim.
func ProcessSingle(name string, data []byte, opts Options) (*SingleResult, error) {
	if opts.Parser == (manifest.Options{}) {
		opts.Parser = manifest.Defaults()
	}

	mf, err := manifest.Parse(name, data, opts.Parser)
	if err != nil {
		return nil, err
	}

	raw := make([]int, len(mf.Rows))
	for i, r := range mf.Rows {
		raw[i] = r.RawBox
	}
	seq := raw
	if opts.ResetAware {
		seq = ContinueThroughResets(raw)
	}

	res := &SingleResult{}
	boxes := map[int]bool{}
	for i, r := range mf.Rows {
		res.Rows = append(res.Rows, models.BoxEntry{
			SKU:       r.SKU,
			BoxNumber: seq[i],
			Quantity:  r.Quantity,
		})
		res.TotalQty += r.Quantity
		boxes[seq[i]] = true
	}
	res.TotalBoxes = len(boxes)
	res.Pivot = BuildPivot(res.Rows, opts.DropZeroPivotColumns)

	// Only numeric bold cells count as carton weights in this mode.
	var weights []string
	for _, w := range mf.Weights {
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			continue
		}
		weights = append(weights, w)
		res.CartonTotal += f
	}

	// The dimensions table exists only when LxWxH text was found; its
	// length follows the dimension list, weights padded or truncated.
	for i, d := range mf.Dimensions {
		d := d
		row := models.DimensionRow{
			BoxNumber: i + 1,
			Dims:      &d,
		}
		if i < len(weights) {
			row.Weight = weights[i]
		}
		res.Dimensions = append(res.Dimensions, row)
	}

	return res, nil
}
