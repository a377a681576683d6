package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "fluentcut",
		Short:        "Cut recorded speech into per-speaker segments and score fluency",
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Path to YAML config")
	root.PersistentFlags().String("log-level", "", "Log level (overrides config)")

	root.AddCommand(
		newExtractCmd(),
		newAnalyzeCmd(),
		newScoreCmd(),
		newRubricCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
