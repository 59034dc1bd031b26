package cmd

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/orvilledev/smw-spd-formatter/config"
	"github.com/orvilledev/smw-spd-formatter/internal/archive"
	"github.com/orvilledev/smw-spd-formatter/internal/manifest"
	"github.com/orvilledev/smw-spd-formatter/internal/pipeline"
	"github.com/orvilledev/smw-spd-formatter/internal/report"
)

var (
	processSingle bool
	processOutDir string
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Consolidate manifest files locally",
	Long:  `Consolidate manifest spreadsheets from the local filesystem without the API server`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processSingle, "single", false, "format one file on its own instead of consolidating a batch")
	processCmd.Flags().StringVarP(&processOutDir, "out", "o", ".", "directory for the generated workbook")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	uploads := make([]archive.Upload, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		uploads = append(uploads, archive.Upload{Name: filepath.Base(path), Data: data})
	}

	opts := localPipelineOptions(cfg.Pipeline)

	if processSingle {
		if len(uploads) != 1 {
			return errors.New("single mode takes exactly one file")
		}
		return processSingleFile(uploads[0], opts)
	}

	files, warnings := archive.Expand(uploads)
	for _, w := range warnings {
		log.Warn().Str("file", w.File).Msg(w.Message)
	}
	if len(files) == 0 {
		return errors.New("no spreadsheet files found in the input")
	}
	if len(files) > cfg.Pipeline.MaxUploadFiles {
		return &pipeline.BatchSizeExceededError{Limit: cfg.Pipeline.MaxUploadFiles, Got: len(files)}
	}

	cons := pipeline.NewConsolidator(opts)
	for _, f := range files {
		cons.AddFile(f.Name, f.Data)
	}
	res := cons.Finalize()
	for _, w := range res.Warnings {
		log.Warn().Str("file", w.File).Msg(w.Message)
	}
	if res.Empty() {
		return errors.New("no rows consolidated from the input files")
	}

	out, err := report.WriteConsolidated(res, opts.IncludeCustomerPO)
	if err != nil {
		return err
	}
	return writeOutput(report.OutputName(res.FilesIn), out)
}

func processSingleFile(u archive.Upload, opts pipeline.Options) error {
	res, err := pipeline.ProcessSingle(u.Name, u.Data, opts)
	if err != nil {
		return err
	}
	out, err := report.WriteSingle(res)
	if err != nil {
		return err
	}
	return writeOutput(report.SingleOutputName(u.Name), out)
}

func localPipelineOptions(cfg config.PipelineConfig) pipeline.Options {
	return pipeline.Options{
		RoutingSource:        cfg.RoutingSource,
		ResetAware:           cfg.ResetAware,
		IncludeCustomerPO:    cfg.IncludeCustomerPO,
		DropZeroPivotColumns: cfg.DropZeroPivotColumns,
		Parser: manifest.Options{
			HeaderRow:     cfg.HeaderRow,
			MetadataSheet: cfg.MetadataSheet,
			POCell:        cfg.POCell,
			RoutingCell:   cfg.RoutingCell,
			WeightColumn:  cfg.WeightColumn,
			SKUColumn:     cfg.SKUColumn,
			BoxColumn:     cfg.BoxColumn,
			UnitsColumn:   cfg.UnitsColumn,
		},
	}
}

func writeOutput(name string, data []byte) error {
	path := filepath.Join(processOutDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write output workbook")
	}
	log.Info().Str("path", path).Int("bytes", len(data)).Msg("Wrote consolidated workbook")
	return nil
}
