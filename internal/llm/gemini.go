package llm

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls GenerateContent on the Gemini API backend.
type GeminiProvider struct {
	name       string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiProvider(name, model, baseURL string, httpClient *http.Client) *GeminiProvider {
	return &GeminiProvider{
		name:       name,
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (p *GeminiProvider) Name() string  { return p.name }
func (p *GeminiProvider) Kind() Kind    { return KindGemini }
func (p *GeminiProvider) Model() string { return p.model }

// Complete creates a client per call because the genai client binds the API
// key at construction and keys arrive with each request.
func (p *GeminiProvider) Complete(ctx context.Context, apiKey, system, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: p.baseURL,
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: p.name, Err: err}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Role:  "system",
			Parts: []*genai.Part{genai.NewPartFromText(system)},
		},
	}
	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), config)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Err: err}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Provider: p.name, Err: ErrEmptyResponse}
	}
	return text, nil
}
