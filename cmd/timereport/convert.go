package main

import (
	"github.com/spf13/cobra"

	"example.com/timereport/internal/export"
)

func newEncodeCmd(root *rootOptions) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "encode [input.csv] [output.csv]",
		Short: "Re-encode a UTF-8 report CSV into a legacy code page",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := argOr(args, 0, "output.csv"), argOr(args, 1, "gbk.csv")
			logger, err := root.logger(nil)
			if err != nil {
				return err
			}
			defer logger.Sync()

			enc, err := export.LookupEncoding(label)
			if err != nil {
				return err
			}
			if err := export.TranscodeFile(in, out, enc); err != nil {
				logger.Error("re-encoding failed", "input", in, "output", out, "error", err)
				return err
			}
			logger.Info("re-encoded report", "input", in, "output", out, "encoding", label)
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "encoding", "gbk", "Target encoding label")
	return cmd
}

func newSpreadsheetCmd(root *rootOptions) *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "spreadsheet [input.csv] [output.xlsx]",
		Short: "Convert a UTF-8 report CSV into an xlsx workbook",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := argOr(args, 0, "output.csv"), argOr(args, 1, "output.xlsx")
			logger, err := root.logger(nil)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := export.ConvertFile(in, out, sheet); err != nil {
				logger.Error("spreadsheet conversion failed", "input", in, "output", out, "error", err)
				return err
			}
			logger.Info("converted report", "input", in, "output", out, "sheet", sheet)
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", export.DefaultSheet, "Worksheet name")
	return cmd
}

func argOr(args []string, i int, fallback string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return fallback
}
