package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"example.com/timereport/internal/config"
	"example.com/timereport/internal/events"
	"example.com/timereport/internal/export"
	"example.com/timereport/internal/logging"
	"example.com/timereport/internal/notify"
	"example.com/timereport/internal/observability"
	"example.com/timereport/internal/persistence/postgres"
	"example.com/timereport/internal/report"
)

type exportOptions struct {
	encode      bool
	spreadsheet bool
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build the time report and write the CSV artifacts",
		Long: `Reads every user, aggregates their activity time per category and writes the
report CSV. Unless disabled, the CSV is then re-encoded and converted to xlsx.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := root.logger(&cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runExport(ctx, cfg, opts, logger); err != nil {
				logger.Error("export failed", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.encode, "encode", true, "Also write the re-encoded CSV")
	cmd.Flags().BoolVar(&opts.spreadsheet, "spreadsheet", true, "Also write the xlsx workbook")
	return cmd
}

// runExport executes one batch run. Outputs are only written once the whole table is
// built; archive, notification and metrics push failures are logged and do not fail it.
func runExport(ctx context.Context, cfg config.Config, opts exportOptions, logger *logging.Logger) error {
	source, closeSource, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSource(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("closing data source failed", "error", err)
		}
	}()

	table, summary, err := newPipeline(cfg, source, logger).Run(ctx)
	if err != nil {
		return err
	}

	artifacts, err := writeArtifacts(cfg, opts, table)
	if err != nil {
		return err
	}
	logger.Info("report written", "run_id", summary.RunID, "rows", table.Len(), "artifacts", artifacts)

	if cfg.ArchivePostgresURL != "" {
		if err := archiveRun(ctx, cfg.ArchivePostgresURL, summary, table); err != nil {
			logger.Warn("archiving report run failed", "run_id", summary.RunID, "error", err)
		}
	}
	if cfg.KafkaEnabled() {
		if err := publishRun(ctx, cfg, summary, artifacts); err != nil {
			logger.Warn("publishing report event failed", "run_id", summary.RunID, "error", err)
		}
	}
	if cfg.PushgatewayURL != "" {
		if err := observability.Push(ctx, cfg.PushgatewayURL, "timereport_export"); err != nil {
			logger.Warn("pushing metrics failed", "error", err)
		}
	}
	return nil
}

func writeArtifacts(cfg config.Config, opts exportOptions, table report.Table) ([]string, error) {
	if err := export.WriteCSVFile(cfg.OutputCSV, table); err != nil {
		return nil, fmt.Errorf("write %s: %w", cfg.OutputCSV, err)
	}
	artifacts := []string{cfg.OutputCSV}

	if opts.encode && cfg.OutputEncodedCSV != "" {
		enc, err := export.LookupEncoding(cfg.TargetEncoding)
		if err != nil {
			return artifacts, err
		}
		if err := export.TranscodeFile(cfg.OutputCSV, cfg.OutputEncodedCSV, enc); err != nil {
			return artifacts, fmt.Errorf("write %s: %w", cfg.OutputEncodedCSV, err)
		}
		artifacts = append(artifacts, cfg.OutputEncodedCSV)
	}
	if opts.spreadsheet && cfg.OutputSpreadsheet != "" {
		if err := export.ConvertFile(cfg.OutputCSV, cfg.OutputSpreadsheet, cfg.SheetName); err != nil {
			return artifacts, fmt.Errorf("write %s: %w", cfg.OutputSpreadsheet, err)
		}
		artifacts = append(artifacts, cfg.OutputSpreadsheet)
	}
	return artifacts, nil
}

func archiveRun(ctx context.Context, url string, summary report.RunSummary, table report.Table) error {
	pool, err := postgres.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()
	return postgres.NewArchive(pool).Save(ctx, summary, table)
}

func publishRun(ctx context.Context, cfg config.Config, summary report.RunSummary, artifacts []string) (err error) {
	producer := notify.NewKafkaProducer(cfg.KafkaBrokers)
	defer func() {
		if closeErr := producer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	publishCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return notify.NewPublisher(producer, cfg.KafkaTopic).PublishReportGenerated(publishCtx, events.ReportGenerated{
		RunID:       summary.RunID,
		StartedAt:   summary.StartedAt,
		GeneratedAt: summary.FinishedAt,
		Persons:     summary.Persons,
		Rows:        summary.Rows,
		Absent:      summary.Absent,
		Skipped:     summary.Skipped,
		Artifacts:   artifacts,
	})
}
