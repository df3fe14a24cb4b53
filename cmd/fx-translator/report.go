package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/report"
)

func reportCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show data-quality warnings collected across runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reporter, err := report.NewReporter("")
			if err != nil {
				return err
			}
			if clear {
				if err := reporter.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "report cleared")
				return nil
			}

			records := reporter.List()
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no warnings recorded")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s page %d [%s] %s\n",
					rec.Timestamp.Format("2006-01-02 15:04"),
					rec.Document, rec.PageIndex+1, rec.Stage, rec.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d warnings across %d documents\n",
				len(records), len(reporter.Documents()))
			for stage, n := range reporter.ByStage() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", stage, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all recorded warnings")
	return cmd
}
