package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/rules"
)

type stubProvider struct {
	calls  int
	prompt string
}

func (s *stubProvider) Name() string  { return "gpt-4" }
func (s *stubProvider) Kind() llm.Kind { return llm.KindOpenAI }
func (s *stubProvider) Model() string { return "gpt-4" }

func (s *stubProvider) Complete(_ context.Context, _, _, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return "## Overall security score\n90/100", nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "property.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunAnalyze_PrintsReport(t *testing.T) {
	stub := &stubProvider{}
	a := analysis.New(llm.NewRegistry(stub), nil)
	path := writeConfig(t, `{"propertyName":"www.example.com"}`)

	var out bytes.Buffer
	err := runAnalyze(context.Background(), a, analyzeOptions{
		file:   path,
		apiKey: "sk",
		rules:  []string{"HSTS: Strict-Transport-Security must be set"},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "## Overall security score\n90/100\n", out.String())
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, stub.prompt, `{"propertyName":"www.example.com"}`)
	assert.Contains(t, stub.prompt, "HSTS: Strict-Transport-Security must be set")
	assert.Contains(t, stub.prompt, "WAF_ENABLED")
}

func TestRunAnalyze_MissingInputs(t *testing.T) {
	stub := &stubProvider{}
	a := analysis.New(llm.NewRegistry(stub), nil)

	err := runAnalyze(context.Background(), a, analyzeOptions{file: writeConfig(t, `{}`)}, &bytes.Buffer{})
	assert.ErrorIs(t, err, analysis.ErrMissingAPIKey)

	err = runAnalyze(context.Background(), a, analyzeOptions{apiKey: "sk"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, analysis.ErrMissingConfig)

	err = runAnalyze(context.Background(), a, analyzeOptions{file: writeConfig(t, `{}`), apiKey: "sk", rules: []string{""}}, &bytes.Buffer{})
	assert.ErrorIs(t, err, rules.ErrEmptyRule)

	assert.Equal(t, 0, stub.calls)
}

func TestRunAnalyze_UnreadableFile(t *testing.T) {
	a := analysis.New(llm.NewRegistry(&stubProvider{}), nil)
	err := runAnalyze(context.Background(), a, analyzeOptions{file: filepath.Join(t.TempDir(), "missing.json"), apiKey: "sk"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to read configuration file")
}

func TestCLIProviders_ConfigWithoutServerSection(t *testing.T) {
	path := writeConfig(t, `{"llm": {"providers": [{"name": "gemini-1.5", "kind": "gemini"}]}}`)

	reg, err := cliProviders(path)
	require.NoError(t, err)
	require.Len(t, reg.List(), 1)
	assert.Equal(t, "gemini-1.5", reg.Default().Name())
	assert.Equal(t, llm.KindGemini, reg.Default().Kind())
}

func TestCLIProviders_NoConfigFile(t *testing.T) {
	reg, err := cliProviders(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4", "gemini-pro"}, []string{reg.List()[0].Name, reg.List()[1].Name})
}
