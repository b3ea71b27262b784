package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/pdftojson/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and environment
variables have been applied. The API key is redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return OutputTo(cmd.OutOrStdout(), format, cfg.Redacted())
	},
}
