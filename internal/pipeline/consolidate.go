package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/orvilledev/smw-spd-formatter/internal/manifest"
	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// Routing id sources. The cell source reads the fixed metadata cell; the
// filename source derives the id from the logical file name stem.
const (
	RoutingSourceCell     = "cell"
	RoutingSourceFilename = "filename"
)

// Options selects between the near-duplicate pipeline variants observed in
// the field, collapsed behind one configuration.
type Options struct {
	RoutingSource        string
	ResetAware           bool
	IncludeCustomerPO    bool
	DropZeroPivotColumns bool
	Parser               manifest.Options
}

// Result is the final state of one consolidation run.
type Result struct {
	Contents   []models.BoxEntry
	Dimensions []models.DimensionRow
	Summary    []models.SummaryPair
	Pivot      *Pivot
	Warnings   []models.Warning
	FilesIn    int // files fed into the fold, skipped ones included
	Skipped    int
}

// Empty reports whether the run produced no consolidated rows at all.
func (r *Result) Empty() bool {
	return len(r.Contents) == 0 && len(r.Dimensions) == 0
}

// TotalQuantity sums every consolidated quantity.
func (r *Result) TotalQuantity() int {
	total := 0
	for _, e := range r.Contents {
		total += e.Quantity
	}
	return total
}

// Consolidator folds source files, in upload order, into the running
// ledgers. Processing is strictly sequential: the box offset carried
// between files makes file order an externally observable invariant.
type Consolidator struct {
	opts     Options
	offset   OffsetAccumulator
	contents []models.BoxEntry
	dims     []models.DimensionRow
	warnings []models.Warning
	filesIn  int
	skipped  int
}

// NewConsolidator creates a consolidator with the given variant options.
func NewConsolidator(opts Options) *Consolidator {
	if opts.Parser == (manifest.Options{}) {
		opts.Parser = manifest.Defaults()
	}
	if opts.RoutingSource == "" {
		opts.RoutingSource = RoutingSourceCell
	}
	return &Consolidator{opts: opts}
}

// AddFile parses one source file and folds it into the ledgers. Per-file
// failures are recorded as warnings and never abort the batch.
func (c *Consolidator) AddFile(name string, data []byte) {
	c.filesIn++

	mf, err := manifest.Parse(name, data, c.opts.Parser)
	if err != nil {
		c.skipped++
		c.warnings = append(c.warnings, models.Warning{File: name, Message: err.Error()})
		log.Warn().Err(err).Str("file", name).Msg("Skipping manifest file")
		return
	}

	routing := mf.RoutingID
	if c.opts.RoutingSource == RoutingSourceFilename {
		routing = strings.TrimSuffix(name, filepath.Ext(name))
	}

	raw := make([]int, len(mf.Rows))
	for i, r := range mf.Rows {
		raw[i] = r.RawBox
	}
	seq := raw
	if c.opts.ResetAware {
		seq = ContinueThroughResets(raw)
	}
	global := c.offset.Apply(seq)

	for i, r := range mf.Rows {
		c.contents = append(c.contents, models.BoxEntry{
			SKU:        r.SKU,
			BoxNumber:  global[i],
			Quantity:   r.Quantity,
			CustomerPO: mf.CustomerPO,
			RoutingID:  routing,
		})
	}

	// Dimension rows borrow their starting box number from the advanced
	// offset. With multiple rows per box this drifts from the physical
	// box count; the final merge renumbers over routing order anyway.
	start := c.offset.Offset + 1
	if len(mf.Rows) > 0 {
		start = c.offset.Offset - len(mf.Rows) + 1
	}
	c.dims = append(c.dims, CorrelateFile(mf.Weights, mf.Dimensions, len(mf.Rows), start, routing)...)
}

// Finalize sorts, regroups and cross-tabulates the merged ledgers.
func (c *Consolidator) Finalize() *Result {
	contents, summary := RegroupByRouting(c.contents)
	dims := FinalizeDimensions(c.dims, summary)
	pivot := BuildPivot(contents, c.opts.DropZeroPivotColumns)

	return &Result{
		Contents:   contents,
		Dimensions: dims,
		Summary:    summary,
		Pivot:      pivot,
		Warnings:   c.warnings,
		FilesIn:    c.filesIn,
		Skipped:    c.skipped,
	}
}
