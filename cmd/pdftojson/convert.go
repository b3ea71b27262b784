package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/pdftojson/internal/config"
	"github.com/dgallion1/pdftojson/internal/document"
	"github.com/dgallion1/pdftojson/internal/extract"
	"github.com/dgallion1/pdftojson/internal/pipeline"
)

var convertOutput string

// convertReport is printed once the run has finished.
type convertReport struct {
	Output  string                `json:"output" yaml:"output"`
	Written bool                  `json:"written" yaml:"written"`
	Summary pipeline.Summary      `json:"summary" yaml:"summary"`
	Model   string                `json:"model" yaml:"model"`
	LLM     extract.StatsSnapshot `json:"llm" yaml:"llm"`
}

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert a PDF into page-indexed JSON",
	Long: `Convert every page of a PDF and write the result as one JSON file.

Pages are processed one at a time. A page whose text is empty, whose
classification fails after all attempts, or whose reply cannot be parsed is
skipped and the run continues. Nothing is written when no page produced
content. Ctrl+C stops after the current page and keeps what was converted.

Examples:
  pdftojson convert menu.pdf
  pdftojson convert menu.pdf -o menu.json
  pdftojson convert menu.pdf -f json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if convertOutput != "" {
			cfg.Output = convertOutput
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, closeLog, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		doc, err := document.Open(args[0], documentOptions(cfg, log))
		if err != nil {
			log.Error("open document failed", "path", args[0], "error", err)
			return err
		}
		defer doc.Close()

		chat := extract.NewChatClient(chatConfig(cfg))
		defer chat.Close()

		asm := pipeline.NewPDFAssembler(chat, assemblerOptions(cfg), log)
		defer asm.Close()

		out, sum := asm.Run(cmd.Context(), doc, nil)
		written := pipeline.Persist(out, cfg.Output, log)

		return OutputTo(cmd.OutOrStdout(), format, convertReport{
			Output:  cfg.Output,
			Written: written,
			Summary: sum,
			Model:   chat.Model(),
			LLM:     chat.Stats.Snapshot(),
		})
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file (default from config: expected_output.json)")
}
