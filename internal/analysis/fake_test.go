package analysis

import (
	"context"
	"sync"

	"akamai-analyzer/internal/audit"
	"akamai-analyzer/internal/llm"
)

type fakeProvider struct {
	name  string
	kind  llm.Kind
	reply string
	err   error

	mu      sync.Mutex
	calls   int
	keys    []string
	prompts []string
	systems []string
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Kind() llm.Kind { return f.kind }
func (f *fakeProvider) Model() string { return f.name + "-model" }

func (f *fakeProvider) Complete(_ context.Context, apiKey, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, apiKey)
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type memorySink struct {
	mu      sync.Mutex
	records []audit.Record
}

func (m *memorySink) Record(_ context.Context, r *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	return nil
}

func (m *memorySink) Recent(context.Context, string, int) ([]audit.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Record(nil), m.records...), nil
}
