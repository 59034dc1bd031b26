package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// RunRepository persists and queries processing run records.
type RunRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewRunRepository creates a run repository over the write and read-only
// database connections.
func NewRunRepository(db, readOnlyDB *gorm.DB) *RunRepository {
	return &RunRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create inserts one run record.
func (r *RunRepository) Create(ctx context.Context, run *models.ProcessingRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return errors.Wrap(err, "failed to create processing run")
	}
	return nil
}

// GetByID fetches one run record.
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error) {
	var run models.ProcessingRun
	if err := r.readOnlyDB.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, errors.Wrap(err, "failed to get processing run")
	}
	return &run, nil
}

// List returns the most recent run records, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.ProcessingRun, error) {
	var runs []models.ProcessingRun
	err := r.readOnlyDB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processing runs")
	}
	return runs, nil
}

// DeleteOlderThan removes run records created before the cutoff and
// returns the number deleted.
func (r *RunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ProcessingRun{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to delete old processing runs")
	}
	return res.RowsAffected, nil
}
