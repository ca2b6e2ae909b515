package main

import (
	"github.com/spf13/cobra"

	"example.com/timereport/internal/config"
	"example.com/timereport/internal/logging"
)

type rootOptions struct {
	logMode string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "timereport",
		Short:         "Aggregate per-person activity time and export it as CSV and xlsx",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logMode, "log-mode", "", "Log mode (dev or prod); overrides TIMEREPORT_LOG_MODE")

	cmd.AddCommand(
		newExportCmd(opts),
		newEncodeCmd(opts),
		newSpreadsheetCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// logger builds the process logger, preferring the flag over the configured mode.
func (o *rootOptions) logger(cfg *config.Config) (*logging.Logger, error) {
	mode := o.logMode
	if mode == "" && cfg != nil {
		mode = cfg.LogMode
	}
	return logging.New(mode)
}
