// Package analysis runs the analyze-configuration action: check inputs,
// build the prompt, make one provider call, return the text.
package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"akamai-analyzer/internal/audit"
	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/logging"
	"akamai-analyzer/internal/metrics"
	"akamai-analyzer/internal/prompt"
	"akamai-analyzer/internal/rules"
)

var (
	ErrMissingAPIKey = errors.New("api key is required")
	ErrMissingConfig = errors.New("configuration file is required")
	ErrNoRules       = errors.New("at least one security rule is required")
)

// IsInputError reports whether err was caused by the request rather than
// the provider.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrNoRules) ||
		errors.Is(err, llm.ErrUnknownProvider)
}

type Request struct {
	Provider  string
	APIKey    string
	Config    []byte
	Rules     []rules.Rule
	SessionID string
}

// Report is the provider's answer, unmodified, plus what produced it.
type Report struct {
	Text      string        `json:"report"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Rules     []rules.Rule  `json:"rules"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

type Analyzer struct {
	providers *llm.Registry
	audit     audit.Sink
	now       func() time.Time
	log       *logrus.Entry
}

func New(providers *llm.Registry, sink audit.Sink) *Analyzer {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Analyzer{
		providers: providers,
		audit:     sink,
		now:       time.Now,
		log:       logging.For("Analyzer"),
	}
}

func (a *Analyzer) Providers() *llm.Registry {
	return a.providers
}

// Analyze validates req and, if it is complete, sends exactly one prompt
// to the selected provider. Nothing is retried.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	start := a.now()
	rec := &audit.Record{
		SessionID:   req.SessionID,
		Provider:    req.Provider,
		RuleNames:   rules.Names(req.Rules),
		ConfigBytes: len(req.Config),
		CreatedAt:   start,
	}

	provider, err := a.check(req)
	if err != nil {
		label := "unknown"
		if _, lerr := a.providers.Lookup(req.Provider); lerr == nil {
			label = req.Provider
		}
		a.finish(ctx, rec, audit.OutcomeRejected, label, err, start)
		return nil, err
	}
	rec.Model = provider.Model()

	text, err := provider.Complete(ctx, req.APIKey, prompt.SystemInstructions, prompt.Build(req.Rules, string(req.Config)))
	elapsed := a.now().Sub(start)
	metrics.AnalysisDuration.WithLabelValues(provider.Name()).Observe(elapsed.Seconds())
	if err != nil {
		var perr *llm.ProviderError
		if !errors.As(err, &perr) {
			err = &llm.ProviderError{Provider: provider.Name(), Err: err}
		}
		a.finish(ctx, rec, audit.OutcomeProviderError, provider.Name(), err, start)
		return nil, err
	}
	a.finish(ctx, rec, audit.OutcomeSuccess, provider.Name(), nil, start)

	return &Report{
		Text:      text,
		Provider:  provider.Name(),
		Model:     provider.Model(),
		Rules:     req.Rules,
		Duration:  elapsed,
		CreatedAt: start,
	}, nil
}

func (a *Analyzer) check(req Request) (llm.Provider, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if len(strings.TrimSpace(string(req.Config))) == 0 {
		return nil, ErrMissingConfig
	}
	if len(req.Rules) == 0 {
		return nil, ErrNoRules
	}
	return a.providers.Lookup(req.Provider)
}

func (a *Analyzer) finish(ctx context.Context, rec *audit.Record, outcome audit.Outcome, providerLabel string, err error, start time.Time) {
	rec.Outcome = outcome
	rec.DurationMs = a.now().Sub(start).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
	}
	metrics.AnalysesTotal.WithLabelValues(providerLabel, string(outcome)).Inc()

	entry := a.log.WithFields(logrus.Fields{
		"session":  rec.SessionID,
		"provider": rec.Provider,
		"rules":    len(rec.RuleNames),
		"bytes":    rec.ConfigBytes,
		"outcome":  outcome,
		"ms":       rec.DurationMs,
	})
	if err != nil {
		entry.WithError(err).Warn("analysis did not complete")
	} else {
		entry.Info("analysis completed")
	}

	if aerr := a.audit.Record(context.WithoutCancel(ctx), rec); aerr != nil {
		a.log.WithError(aerr).Error("failed to write audit record")
	}
}
