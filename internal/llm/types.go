package llm

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies which provider API a catalogue entry talks to.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindGemini Kind = "gemini"
)

var (
	ErrUnknownProvider = errors.New("unsupported model")
	ErrEmptyResponse   = errors.New("provider returned no text")
)

// Provider sends one prompt to an external model and returns its text.
type Provider interface {
	Name() string
	Kind() Kind
	Model() string
	Complete(ctx context.Context, apiKey, system, prompt string) (string, error)
}

// ProviderError wraps any failure of the outbound call.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Info is the public view of a provider, safe to hand to clients.
type Info struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Model string `json:"model"`
}

func InfoOf(p Provider) Info {
	return Info{Name: p.Name(), Kind: p.Kind(), Model: p.Model()}
}
