package audit

import (
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outcome of one analysis attempt.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeRejected      Outcome = "rejected"
	OutcomeProviderError Outcome = "provider_error"
)

// Record is the metadata kept for an analysis. The configuration, the API
// key and the report text are never stored.
type Record struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	SessionID   string                      `json:"session_id" gorm:"size:64;index"`
	Provider    string                      `json:"provider" gorm:"size:64"`
	Model       string                      `json:"model" gorm:"size:128"`
	RuleNames   datatypes.JSONSlice[string] `json:"rule_names"`
	ConfigBytes int                         `json:"config_bytes"`
	Outcome     Outcome                     `json:"outcome" gorm:"size:32;index"`
	Error       string                      `json:"error,omitempty"`
	DurationMs  int64                       `json:"duration_ms"`
	CreatedAt   time.Time                   `json:"createdAt"`
}

const (
	sessionIDSize = 64
	providerSize  = 64
	modelSize     = 128
	errorSize     = 2000
)

// BeforeCreate clips client-supplied strings to their column sizes so an
// oversized provider name cannot make Postgres reject the row.
func (r *Record) BeforeCreate(*gorm.DB) error {
	r.SessionID = clip(r.SessionID, sessionIDSize)
	r.Provider = clip(r.Provider, providerSize)
	r.Model = clip(r.Model, modelSize)
	r.Error = clip(r.Error, errorSize)
	return nil
}

// clip cuts s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
