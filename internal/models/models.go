package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DetailRow is one cleaned line item from a manifest detail table.
type DetailRow struct {
	SKU      string `json:"sku"`
	RawBox   int    `json:"raw_box"`
	Quantity int    `json:"quantity"`
}

// BoxEntry is one row of the consolidated box-contents ledger after
// global renumbering.
type BoxEntry struct {
	SKU        string `json:"sku"`
	BoxNumber  int    `json:"box_number"`
	Quantity   int    `json:"quantity"`
	CustomerPO string `json:"customer_po"`
	RoutingID  string `json:"routing_id"`
}

// Dimension is one LxWxH triple scanned out of a manifest sheet.
type Dimension struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DimensionRow is one box's physical attributes. Weight is kept as the raw
// cell text because the source sheets mix numeric and annotated values;
// blank means the positional correlation ran out of extracted values.
type DimensionRow struct {
	BoxNumber int        `json:"box_number"`
	Weight    string     `json:"weight"`
	Dims      *Dimension `json:"dims"`
	RoutingID string     `json:"routing_id"`
}

// Complete reports whether the row survived the final merge filter,
// which drops rows missing any of weight/length/width/height.
func (r DimensionRow) Complete() bool {
	return r.Weight != "" && r.Dims != nil
}

// SummaryPair is a deduplicated (Customer PO, Routing #) pair in
// first-appearance order.
type SummaryPair struct {
	CustomerPO string `json:"customer_po"`
	RoutingID  string `json:"routing_id"`
}

// Warning records a per-file problem that reduced the input set without
// aborting the run.
type Warning struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ProcessingRun is the persisted record of one consolidation run.
type ProcessingRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Mode          string         `gorm:"not null" json:"mode"`
	OutputName    string         `gorm:"not null" json:"output_name"`
	FileCount     int            `json:"file_count"`
	SkippedCount  int            `json:"skipped_count"`
	RowCount      int            `json:"row_count"`
	BoxCount      int            `json:"box_count"`
	TotalQuantity int            `json:"total_quantity"`
	DurationMs    int64          `json:"duration_ms"`
	Warnings      []byte         `gorm:"type:jsonb" json:"warnings"`
}

// SetupModels runs the schema migrations for the write database.
func SetupModels(db *gorm.DB) error {
	return db.AutoMigrate(&ProcessingRun{})
}
