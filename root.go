package main

import (
	"github.com/spf13/cobra"

	"postgen/app"
	"postgen/logger"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "postgen",
		Short:         "Generate posts and hero images for spreadsheet topics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "postgen.toml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.workbook, "workbook", "", "Workbook path (overrides workbook.path)")
	rootCmd.PersistentFlags().StringVar(&flags.sheet, "sheet", "", "Sheet name (default: active sheet)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logs")
	rootCmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Use an offline text generator and placeholder images only")

	rootCmd.AddCommand(newOneCommand(flags))
	rootCmd.AddCommand(newBatchCommand(flags))
	return rootCmd
}

func newOneCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "one",
		Short: "Generate the post and image for the next pending row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags, true)
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			out, err := rt.runner.RunOne(cmd.Context())
			if err != nil {
				return err
			}
			// Row failures are already recorded in the sheet; exit normally.
			logOutcome(rt.log, out)
			return nil
		},
	}
}

func newBatchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Write a blog for every row with a topic and an empty blog cell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags, false)
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			sum, err := rt.runner.RunBatch(cmd.Context())
			if err != nil {
				return err
			}
			logBatchSummary(rt.log, sum)
			return nil
		},
	}
}

func logOutcome(log *logger.Logger, out app.Outcome) {
	if out.Err != nil {
		log.Error("row finished with error", "row", out.Row, "status", out.Status, "error", out.Err)
	}
}

func logBatchSummary(log *logger.Logger, sum app.BatchSummary) {
	if sum.Alternate {
		log.Warn("workbook was locked; results saved to alternate file", "path", sum.SavedTo)
	}
	log.Info("All blogs generated and saved!", "generated", sum.Generated, "failed", sum.Failed, "path", sum.SavedTo, "alternate", sum.Alternate)
}
