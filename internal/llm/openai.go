package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider calls the chat completions endpoint.
type OpenAIProvider struct {
	name   string
	model  string
	client openai.Client
}

// NewOpenAIProvider builds a provider without a credential; the caller's key
// is attached per request. Retries are disabled so each analysis is a
// single outbound call.
func NewOpenAIProvider(name, model, baseURL string, httpClient *http.Client) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		name:   name,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Kind() Kind    { return KindOpenAI }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Complete(ctx context.Context, apiKey, system, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
	resp, err := p.client.Chat.Completions.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		return "", &ProviderError{Provider: p.name, Err: err}
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Provider: p.name, Err: ErrEmptyResponse}
	}
	return text, nil
}
