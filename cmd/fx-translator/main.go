package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "fx-translator",
		Short: "Analyze scanned-book PDFs into layout segments and translate them",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logCfg := logger.DefaultConfig()
			if verbose {
				logCfg.Level = logger.LevelDebug
				logCfg.EnableConsole = true
			}
			return logger.Init(logCfg)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	root.PersistentFlags().String("config", "", "config file path (default: ~/.config/fx-translator)")

	root.AddCommand(analyzeCmd())
	root.AddCommand(detectCmd())
	root.AddCommand(translateCmd())
	root.AddCommand(configCmd())
	root.AddCommand(reportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
