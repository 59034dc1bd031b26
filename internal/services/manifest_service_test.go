package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orvilledev/smw-spd-formatter/config"
	"github.com/orvilledev/smw-spd-formatter/internal/archive"
	"github.com/orvilledev/smw-spd-formatter/internal/models"
	"github.com/orvilledev/smw-spd-formatter/internal/pipeline"
)

// Mock run store for testing
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) Create(ctx context.Context, run *models.ProcessingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.ProcessingRun), args.Error(1)
}

func (m *MockRunStore) List(ctx context.Context, limit int) ([]models.ProcessingRun, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ProcessingRun), args.Error(1)
}

func (m *MockRunStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// Mock artifact cache for testing
type MockArtifactCache struct {
	mock.Mock
}

func (m *MockArtifactCache) StoreArtifact(ctx context.Context, runID uuid.UUID, name string, data []byte) error {
	args := m.Called(ctx, runID, name, data)
	return args.Error(0)
}

func (m *MockArtifactCache) GetArtifact(ctx context.Context, runID uuid.UUID) ([]byte, string, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxUploadFiles:    100,
		RoutingSource:     "cell",
		IncludeCustomerPO: true,
		HeaderRow:         10,
		MetadataSheet:     "Page1_1",
		POCell:            "G5",
		RoutingCell:       "G6",
		WeightColumn:      "G",
		SKUColumn:         "UPC",
		BoxColumn:         "Box X",
		UnitsColumn:       "Sku Units",
	}
}

// testManifest builds a minimal manifest workbook for service tests.
func testManifest(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A11", &[]interface{}{"UPC", "Box X", "Sku Units"}))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, 12+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestProcessBatchRejectsOversizedBatch(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.MaxUploadFiles = 2
	service := NewManifestService(nil, nil, nil, nil, nil, nil, cfg)

	uploads := []archive.Upload{
		{Name: "a.xlsx"}, {Name: "b.xlsx"}, {Name: "c.xlsx"},
	}

	_, err := service.ProcessBatch(context.Background(), uploads)
	require.Error(t, err)

	var tooBig *pipeline.BatchSizeExceededError
	require.ErrorAs(t, err, &tooBig)
	require.Equal(t, 2, tooBig.Limit)
	require.Equal(t, 3, tooBig.Got)
}

func TestProcessBatchEmptyBatch(t *testing.T) {
	service := NewManifestService(nil, nil, nil, nil, nil, nil, testPipelineConfig())

	// Nothing spreadsheet-like survives extraction
	outcome, err := service.ProcessBatch(context.Background(), []archive.Upload{
		{Name: "notes.txt", Data: []byte("hello")},
	})
	require.NoError(t, err)
	require.True(t, outcome.Empty)
	require.Empty(t, outcome.Artifact)
	require.Len(t, outcome.Warnings, 1)
}

func TestProcessBatchProducesArtifactAndRecordsRun(t *testing.T) {
	mockStore := new(MockRunStore)
	mockCache := new(MockArtifactCache)
	mockStore.On("Create", mock.Anything, mock.AnythingOfType("*models.ProcessingRun")).Return(nil)
	mockCache.On("StoreArtifact", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := NewManifestService(mockStore, mockCache, nil, nil, nil, nil, testPipelineConfig())

	data := testManifest(t, [][]interface{}{
		{"111", 1, 5},
		{"222", 2, 3},
	})

	outcome, err := service.ProcessBatch(context.Background(), []archive.Upload{
		{Name: "a.xlsx", Data: data},
	})
	require.NoError(t, err)
	require.False(t, outcome.Empty)
	require.NotEmpty(t, outcome.Artifact)
	require.Equal(t, "SMW-BC-Output-1-ITEMS.xlsx", outcome.OutputName)
	require.Equal(t, 1, outcome.FilesIn)
	require.Zero(t, outcome.Skipped)
	require.Equal(t, 2, outcome.RowCount)
	require.Equal(t, 8, outcome.TotalQuantity)

	mockStore.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestProcessBatchSkipsBadFilesButContinues(t *testing.T) {
	service := NewManifestService(nil, nil, nil, nil, nil, nil, testPipelineConfig())

	good := testManifest(t, [][]interface{}{{"111", 1, 4}})
	outcome, err := service.ProcessBatch(context.Background(), []archive.Upload{
		{Name: "bad.xlsx", Data: []byte("not a workbook")},
		{Name: "good.xlsx", Data: good},
	})
	require.NoError(t, err)
	require.Equal(t, 2, outcome.FilesIn)
	require.Equal(t, 1, outcome.Skipped)
	require.Len(t, outcome.Warnings, 1)
	require.Equal(t, 4, outcome.TotalQuantity)
}

func TestProcessSingle(t *testing.T) {
	service := NewManifestService(nil, nil, nil, nil, nil, nil, testPipelineConfig())

	data := testManifest(t, [][]interface{}{
		{"111", 1, 5},
		{"222", 1, 2},
	})

	outcome, err := service.ProcessSingle(context.Background(), "load.xlsx", data)
	require.NoError(t, err)
	require.Equal(t, "load formatted.xlsx", outcome.OutputName)
	require.NotEmpty(t, outcome.Artifact)
	require.Equal(t, 2, outcome.RowCount)
	require.Equal(t, 1, outcome.BoxCount)
	require.Equal(t, 7, outcome.TotalQuantity)
}

func TestProcessSingleSurfacesParseError(t *testing.T) {
	service := NewManifestService(nil, nil, nil, nil, nil, nil, testPipelineConfig())

	_, err := service.ProcessSingle(context.Background(), "bad.xlsx", []byte("nope"))
	require.Error(t, err)
}

func TestArtifactWithoutCache(t *testing.T) {
	service := NewManifestService(nil, nil, nil, nil, nil, nil, testPipelineConfig())

	_, _, err := service.Artifact(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestGetRun(t *testing.T) {
	mockStore := new(MockRunStore)
	id := uuid.New()
	mockStore.On("GetByID", mock.Anything, id).Return(&models.ProcessingRun{ID: id, Mode: "consolidated"}, nil)

	service := NewManifestService(mockStore, nil, nil, nil, nil, nil, testPipelineConfig())

	run, err := service.GetRun(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, run.ID)
	mockStore.AssertExpectations(t)
}

func TestCleanupRuns(t *testing.T) {
	mockStore := new(MockRunStore)
	mockStore.On("DeleteOlderThan", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	service := NewManifestService(mockStore, nil, nil, nil, nil, nil, testPipelineConfig())

	deleted, err := service.CleanupRuns(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)
	mockStore.AssertExpectations(t)
}

func TestFindSpreadsheets(t *testing.T) {
	service := NewManifestService(nil, nil, nil, nil, nil, nil, testPipelineConfig())

	zipData, names, warnings, err := service.FindSpreadsheets([]archive.Upload{
		{Name: "PO-55-load.xlsx", Data: []byte("x")},
		{Name: "other.xlsx", Data: []byte("y")},
	}, []string{"po-55"})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, []string{"PO-55-load.xlsx"}, names)
	require.NotEmpty(t, zipData)
}
