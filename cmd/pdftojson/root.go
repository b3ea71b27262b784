package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pdftojson",
	Short: "Convert PDF documents into page-indexed JSON",
	Long: `pdftojson turns a multi-page PDF into structured JSON, one record per page.

For each page it:
  - detects ruled and whitespace-aligned tables
  - cleans the page text
  - asks a chat completions model to classify the prose into titles,
    paragraphs and disclaimers
  - appends the detected tables after the classified components

Configuration comes from ./pdftojson.yaml (or --config) and PDFTOJSON_*
environment variables.`,
	Version:       gitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./pdftojson.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "format", "f", "yaml", "report format: yaml or json",
	)

	rootCmd.AddCommand(convertCmd, serveCmd, configCmd, versionCmd)
}
