package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/export"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

func analyzeCmd() *cobra.Command {
	var out string
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "analyze <pdf>",
		Short: "Detect layout segments and write them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[0]

			mgr, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			status := newStatusReporter(cmd.ErrOrStderr())
			result, err := analyzeDocument(cmd.Context(), mgr, pdfPath, flags, status)
			if err != nil {
				status.Fail(err)
				return err
			}
			printWarnings(cmd, result)

			sidecarPath := outputBase(pdfPath, out) + ".layout.json"
			if err := export.WriteSidecar(sidecarPath, pdfPath, result, nil); err != nil {
				status.Fail(err)
				return err
			}
			status.Report(types.Status{Phase: types.PhaseComplete, Progress: 100})

			segments := 0
			for _, p := range result.Pages {
				segments += len(p.Segments)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d logical pages, %d segments -> %s\n",
				len(result.Pages), segments, sidecarPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: next to the input)")
	flags.register(cmd)
	return cmd
}
