package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "akamai-analyzer",
		Short: "Check Akamai security configurations against security rules with an LLM",
		Long: `akamai-analyzer sends an Akamai configuration and a list of security rules
to OpenAI or Gemini and returns the model's assessment. It runs as a web
application (serve) or as a one-shot command (analyze).`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the JSON config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd(), newAnalyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
