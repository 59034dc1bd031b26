package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/orvilledev/smw-spd-formatter/config"
	"github.com/orvilledev/smw-spd-formatter/internal/archive"
	"github.com/orvilledev/smw-spd-formatter/internal/manifest"
	"github.com/orvilledev/smw-spd-formatter/internal/messaging"
	"github.com/orvilledev/smw-spd-formatter/internal/metrics"
	"github.com/orvilledev/smw-spd-formatter/internal/models"
	"github.com/orvilledev/smw-spd-formatter/internal/pipeline"
	"github.com/orvilledev/smw-spd-formatter/internal/report"
	"github.com/orvilledev/smw-spd-formatter/internal/tracing"
)

// RunStore persists processing run records.
type RunStore interface {
	Create(ctx context.Context, run *models.ProcessingRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error)
	List(ctx context.Context, limit int) ([]models.ProcessingRun, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArtifactCache holds generated workbooks for later download.
type ArtifactCache interface {
	StoreArtifact(ctx context.Context, runID uuid.UUID, name string, data []byte) error
	GetArtifact(ctx context.Context, runID uuid.UUID) ([]byte, string, error)
}

// RunIndexer indexes run summaries for search.
type RunIndexer interface {
	IndexRun(ctx context.Context, run *models.ProcessingRun, fileNames []string, summary []models.SummaryPair) error
	SearchRuns(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error)
}

// ManifestService orchestrates manifest consolidation runs.
type ManifestService struct {
	runs    RunStore
	cache   ArtifactCache
	indexer RunIndexer
	bus     messaging.ServiceBusClient
	metrics *metrics.Metrics
	tracer  tracing.Tracer
	cfg     config.PipelineConfig
}

// NewManifestService creates the service. Nil collaborators are tolerated;
// the service degrades to processing-only.
func NewManifestService(
	runs RunStore,
	cache ArtifactCache,
	indexer RunIndexer,
	bus messaging.ServiceBusClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	cfg config.PipelineConfig,
) *ManifestService {
	if metricsCollector == nil {
		metricsCollector = metrics.NewMetrics()
	}
	if tracer == nil {
		tracer = &tracing.NewRelicTracer{}
	}
	return &ManifestService{
		runs:    runs,
		cache:   cache,
		indexer: indexer,
		bus:     bus,
		metrics: metricsCollector,
		tracer:  tracer,
		cfg:     cfg,
	}
}

// RunOutcome is what one batch run produced.
type RunOutcome struct {
	RunID         uuid.UUID            `json:"run_id"`
	OutputName    string               `json:"output_name,omitempty"`
	Artifact      []byte               `json:"-"`
	FilesIn       int                  `json:"files_in"`
	Skipped       int                  `json:"skipped"`
	RowCount      int                  `json:"row_count"`
	BoxCount      int                  `json:"box_count"`
	TotalQuantity int                  `json:"total_quantity"`
	Summary       []models.SummaryPair `json:"summary,omitempty"`
	Warnings      []models.Warning     `json:"warnings,omitempty"`
	Empty         bool                 `json:"empty"`
}

func (s *ManifestService) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		RoutingSource:        s.cfg.RoutingSource,
		ResetAware:           s.cfg.ResetAware,
		IncludeCustomerPO:    s.cfg.IncludeCustomerPO,
		DropZeroPivotColumns: s.cfg.DropZeroPivotColumns,
		Parser: manifest.Options{
			HeaderRow:     s.cfg.HeaderRow,
			MetadataSheet: s.cfg.MetadataSheet,
			POCell:        s.cfg.POCell,
			RoutingCell:   s.cfg.RoutingCell,
			WeightColumn:  s.cfg.WeightColumn,
			SKUColumn:     s.cfg.SKUColumn,
			BoxColumn:     s.cfg.BoxColumn,
			UnitsColumn:   s.cfg.UnitsColumn,
		},
	}
}

// ProcessBatch runs the full consolidation pipeline over one upload batch.
// The batch ceiling rejects the whole request before any processing; an
// empty batch terminates with an empty outcome and no artifact. Everything
// in between is per-file recoverable.
func (s *ManifestService) ProcessBatch(ctx context.Context, uploads []archive.Upload) (*RunOutcome, error) {
	txn := s.tracer.StartTransaction("process-manifest-batch")
	defer s.tracer.EndTransaction(txn)

	if limit := s.cfg.MaxUploadFiles; limit > 0 && len(uploads) > limit {
		err := &pipeline.BatchSizeExceededError{Limit: limit, Got: len(uploads)}
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	started := time.Now()

	span := s.tracer.StartSpan("expand-archives", txn)
	files, warnings := archive.Expand(uploads)
	span.End()

	if len(files) == 0 {
		log.Warn().Int("uploads", len(uploads)).Msg("No valid manifest files in batch")
		return &RunOutcome{
			RunID:    uuid.New(),
			Warnings: warnings,
			Empty:    true,
		}, nil
	}

	// Files fold in upload order; the carried box offset makes the order
	// observable in the output.
	span = s.tracer.StartSpan("consolidate-files", txn)
	cons := pipeline.NewConsolidator(s.pipelineOptions())
	fileNames := make([]string, 0, len(files))
	for _, f := range files {
		fileNames = append(fileNames, f.Name)
		cons.AddFile(f.Name, f.Data)
	}
	res := cons.Finalize()
	span.End()

	res.Warnings = append(warnings, res.Warnings...)

	span = s.tracer.StartSpan("write-report", txn)
	data, err := report.WriteConsolidated(res, s.cfg.IncludeCustomerPO)
	span.End()
	if err != nil {
		s.metrics.IncrementCounter(metrics.RunsFailed)
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to write consolidated report")
	}

	outcome := &RunOutcome{
		RunID:         uuid.New(),
		OutputName:    report.OutputName(res.FilesIn),
		Artifact:      data,
		FilesIn:       res.FilesIn,
		Skipped:       res.Skipped,
		RowCount:      len(res.Contents),
		BoxCount:      len(res.Pivot.Boxes),
		TotalQuantity: res.Pivot.GrandTotal,
		Summary:       res.Summary,
		Warnings:      res.Warnings,
	}

	s.recordRun(ctx, outcome, "consolidated", fileNames, time.Since(started))
	return outcome, nil
}

// ProcessSingle runs the single-file variant. Parse failures surface to
// the caller here instead of being folded into warnings.
func (s *ManifestService) ProcessSingle(ctx context.Context, name string, data []byte) (*RunOutcome, error) {
	txn := s.tracer.StartTransaction("process-single-manifest")
	defer s.tracer.EndTransaction(txn)

	started := time.Now()

	res, err := pipeline.ProcessSingle(name, data, s.pipelineOptions())
	if err != nil {
		s.metrics.IncrementCounter(metrics.RunsFailed)
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	artifact, err := report.WriteSingle(res)
	if err != nil {
		s.metrics.IncrementCounter(metrics.RunsFailed)
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to write formatted workbook")
	}

	outcome := &RunOutcome{
		RunID:         uuid.New(),
		OutputName:    report.SingleOutputName(name),
		Artifact:      artifact,
		FilesIn:       1,
		RowCount:      len(res.Rows),
		BoxCount:      res.TotalBoxes,
		TotalQuantity: res.TotalQty,
	}

	s.recordRun(ctx, outcome, "single", []string{name}, time.Since(started))
	return outcome, nil
}

// recordRun persists, caches, indexes and publishes one finished run.
// Each side effect is best-effort: the artifact already exists, so a
// failing collaborator downgrades to a warning log.
func (s *ManifestService) recordRun(ctx context.Context, outcome *RunOutcome, mode string, fileNames []string, took time.Duration) {
	s.metrics.IncrementCounter(metrics.RunsTotal)
	s.metrics.IncrementCounterBy(metrics.FilesProcessed, int64(outcome.FilesIn-outcome.Skipped))
	s.metrics.IncrementCounterBy(metrics.FilesSkipped, int64(outcome.Skipped))
	s.metrics.IncrementCounterBy(metrics.RowsConsolidated, int64(outcome.RowCount))
	s.metrics.RecordTimer(metrics.RunDuration, took.Milliseconds())

	warningsJSON, err := json.Marshal(outcome.Warnings)
	if err != nil {
		warningsJSON = []byte("[]")
	}

	run := &models.ProcessingRun{
		ID:            outcome.RunID,
		Mode:          mode,
		OutputName:    outcome.OutputName,
		FileCount:     outcome.FilesIn,
		SkippedCount:  outcome.Skipped,
		RowCount:      outcome.RowCount,
		BoxCount:      outcome.BoxCount,
		TotalQuantity: outcome.TotalQuantity,
		DurationMs:    took.Milliseconds(),
		Warnings:      warningsJSON,
	}

	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("Failed to persist run record")
		}
	}

	if s.cache != nil && len(outcome.Artifact) > 0 {
		if err := s.cache.StoreArtifact(ctx, outcome.RunID, outcome.OutputName, outcome.Artifact); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("Failed to cache artifact")
		}
	}

	if s.indexer != nil {
		if err := s.indexer.IndexRun(ctx, run, fileNames, outcome.Summary); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("Failed to index run")
		}
	}

	if s.bus != nil {
		event := messaging.RunCompletedEvent{
			RunID:         run.ID.String(),
			OutputName:    run.OutputName,
			FileCount:     run.FileCount,
			SkippedCount:  run.SkippedCount,
			TotalQuantity: run.TotalQuantity,
			CompletedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.bus.SendMessage(ctx, event); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("Failed to publish run event")
		}
	}

	log.Info().
		Str("run_id", run.ID.String()).
		Str("mode", mode).
		Int("files", run.FileCount).
		Int("skipped", run.SkippedCount).
		Int("total_quantity", run.TotalQuantity).
		Dur("took", took).
		Msg("Processing run completed")
}

// Artifact fetches a cached workbook by run id.
func (s *ManifestService) Artifact(ctx context.Context, runID uuid.UUID) ([]byte, string, error) {
	if s.cache == nil {
		return nil, "", errors.New("artifact cache not configured")
	}
	return s.cache.GetArtifact(ctx, runID)
}

// GetRun fetches one run record by id.
func (s *ManifestService) GetRun(ctx context.Context, runID uuid.UUID) (*models.ProcessingRun, error) {
	if s.runs == nil {
		return nil, errors.New("run store not configured")
	}
	return s.runs.GetByID(ctx, runID)
}

// SearchRuns queries the run index for the given term across file names,
// POs, routing ids and output names.
func (s *ManifestService) SearchRuns(ctx context.Context, term string) ([]map[string]interface{}, error) {
	if s.indexer == nil {
		return nil, errors.New("run search not configured")
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"file_names", "customer_pos", "routing_ids", "output_name"},
			},
		},
	}
	return s.indexer.SearchRuns(ctx, query)
}

// ListRuns returns recent run history.
func (s *ManifestService) ListRuns(ctx context.Context, limit int) ([]models.ProcessingRun, error) {
	if s.runs == nil {
		return nil, errors.New("run store not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.runs.List(ctx, limit)
}

// FindSpreadsheets searches upload names (including names inside zips) for
// the given keywords and packages the matches into one zip.
func (s *ManifestService) FindSpreadsheets(uploads []archive.Upload, keywords []string) ([]byte, []string, []models.Warning, error) {
	found, warnings := archive.Find(uploads, keywords)
	if len(found) == 0 {
		return nil, nil, warnings, nil
	}
	names := make([]string, 0, len(found))
	for _, f := range found {
		names = append(names, f.Name)
	}
	zipData, err := archive.BuildZip(found)
	if err != nil {
		return nil, nil, warnings, err
	}
	return zipData, names, warnings, nil
}

// CleanupRuns deletes run records older than the retention window.
func (s *ManifestService) CleanupRuns(ctx context.Context, maxAge time.Duration) (int64, error) {
	if s.runs == nil {
		return 0, errors.New("run store not configured")
	}
	return s.runs.DeleteOlderThan(ctx, time.Now().Add(-maxAge))
}
