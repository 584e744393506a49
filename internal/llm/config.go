package llm

import (
	"net/http"
	"time"
)

// Options control the HTTP side of provider calls.
type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultOptions returns the client settings used when none are configured.
func DefaultOptions() Options {
	return Options{Timeout: 120 * time.Second}
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.Timeout}
}
