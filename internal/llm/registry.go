package llm

import (
	"fmt"

	"akamai-analyzer/internal/config"
)

// Registry holds the configured providers in catalogue order.
type Registry struct {
	order  []string
	byName map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.byName[p.Name()]; !dup {
			r.order = append(r.order, p.Name())
		}
		r.byName[p.Name()] = p
	}
	return r
}

// FromConfig builds one provider per catalogue entry.
func FromConfig(entries []config.ProviderConfig, opts Options) (*Registry, error) {
	hc := opts.httpClient()
	providers := make([]Provider, 0, len(entries))
	for _, e := range entries {
		model := e.Model
		if model == "" {
			model = e.Name
		}
		switch Kind(e.ResolvedKind()) {
		case KindOpenAI:
			providers = append(providers, NewOpenAIProvider(e.Name, model, e.BaseURL, hc))
		case KindGemini:
			providers = append(providers, NewGeminiProvider(e.Name, model, e.BaseURL, hc))
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, e.Name)
		}
	}
	return NewRegistry(providers...), nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Default is the first provider in catalogue order, or nil.
func (r *Registry) Default() Provider {
	if len(r.order) == 0 {
		return nil
	}
	return r.byName[r.order[0]]
}

func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, InfoOf(r.byName[name]))
	}
	return out
}
