package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update the stored configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetKeyCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg := *mgr.GetConfig()
			if cfg.OpenAIAPIKey != "" {
				cfg.OpenAIAPIKey = "***"
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", mgr.GetConfigPath(), data)
			return nil
		},
	}
}

func configSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <api-key>",
		Short: "Store the translation API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := mgr.SetAPIKey(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
			return nil
		},
	}
}
