package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/logging"
	"akamai-analyzer/internal/rules"
)

type analyzeOptions struct {
	file     string
	provider string
	apiKey   string
	rules    []string
}

func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one configuration file and print the report",
		Example: `  akamai-analyzer analyze --file property.json --provider gpt-4 --api-key sk-...
  ANALYZER_API_KEY=... akamai-analyzer analyze -f property.json -p gemini-pro --rule "HSTS: Strict-Transport-Security must be set"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.apiKey == "" {
				opts.apiKey = os.Getenv("ANALYZER_API_KEY")
			}
			logging.Setup(logLevel, "text", cmd.ErrOrStderr())

			providers, err := cliProviders(configPath)
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), analysis.New(providers, nil), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Akamai configuration file")
	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "", "Provider name (defaults to the first configured)")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Provider API key (or ANALYZER_API_KEY)")
	cmd.Flags().StringArrayVarP(&opts.rules, "rule", "r", nil, `Extra rule, "NAME: description" or free text (repeatable)`)
	return cmd
}

// cliProviders reads the provider catalogue from the config file when one
// exists and falls back to the built-in providers otherwise. Only the llm
// section is consulted; server settings such as session_secret are not
// needed to analyze one file.
func cliProviders(path string) (*llm.Registry, error) {
	entries := config.DefaultProviders()
	opts := llm.DefaultOptions()
	if _, err := os.Stat(path); err == nil {
		cfg, err := config.LoadLLMConfig(path)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
		entries = cfg.LLM.Providers
		opts.Timeout = time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second
	}
	return llm.FromConfig(entries, opts)
}

func runAnalyze(ctx context.Context, a *analysis.Analyzer, opts analyzeOptions, out io.Writer) error {
	var content []byte
	if opts.file != "" {
		b, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
		content = b
	}

	custom := make([]rules.Rule, 0, len(opts.rules))
	for _, text := range opts.rules {
		r, err := rules.ParseRule(text)
		if err != nil {
			return fmt.Errorf("invalid rule %q: %w", text, err)
		}
		custom = append(custom, r)
	}

	provider := opts.provider
	if provider == "" {
		if p := a.Providers().Default(); p != nil {
			provider = p.Name()
		}
	}

	rep, err := a.Analyze(ctx, analysis.Request{
		Provider:  provider,
		APIKey:    opts.apiKey,
		Config:    content,
		Rules:     rules.Combined(custom),
		SessionID: "cli",
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, rep.Text)
	return err
}
