// Package rules holds the security checks a configuration is analyzed
// against: the fixed defaults plus whatever custom rules a session adds.
package rules

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptyRule    = errors.New("rule must not be empty")
	ErrRuleNotFound = errors.New("rule not found")
)

// Rule is a named natural-language description of a property the model
// should check. Custom rules may have no name.
type Rule struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r Rule) String() string {
	if r.Name == "" {
		return r.Description
	}
	return r.Name + ": " + r.Description
}

var defaults = []Rule{
	{Name: "WAF_ENABLED", Description: "Ensure WAF is enabled for all endpoints"},
	{Name: "RATE_LIMIT", Description: "Verify rate limiting is configured for API endpoints"},
	{Name: "GEO_BLOCKING", Description: "Check geo-blocking configuration for sensitive regions"},
	{Name: "TLS_VERSION", Description: "Validate TLS 1.2+ enforcement"},
	{Name: "BOT_MANAGEMENT", Description: "Review bot management rules"},
	{Name: "DDOS_PROTECTION", Description: "Confirm DDoS protection settings"},
}

// Defaults returns a fresh copy of the built-in rules.
func Defaults() []Rule {
	out := make([]Rule, len(defaults))
	copy(out, defaults)
	return out
}

// Combined returns the defaults followed by the given custom rules.
func Combined(custom []Rule) []Rule {
	return append(Defaults(), custom...)
}

var ruleName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseRule turns user input into a Rule. "HSTS: Require HSTS" becomes a
// named rule; free text without an identifier prefix keeps an empty name.
func ParseRule(text string) (Rule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Rule{}, ErrEmptyRule
	}
	if name, desc, ok := strings.Cut(text, ":"); ok {
		name = strings.TrimSpace(name)
		desc = strings.TrimSpace(desc)
		if ruleName.MatchString(name) && desc != "" {
			return Rule{Name: name, Description: desc}, nil
		}
	}
	return Rule{Description: text}, nil
}

// Names lists rule names, using the description for unnamed rules.
func Names(rs []Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		if r.Name != "" {
			out[i] = r.Name
		} else {
			out[i] = r.Description
		}
	}
	return out
}
