// Package provider builds the Anthropic client and classifies its errors.
package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = anthropic.ModelClaude3_7SonnetLatest
const APIVersion = "2023-06-01"

// Options configures NewAnthropicClient.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewAnthropicClient returns a client with SDK-level retries disabled;
// retries and circuit breaking are applied by the caller.
// An empty APIKey falls back to ANTHROPIC_API_KEY.
func NewAnthropicClient(o Options) *anthropic.Client {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	c := anthropic.NewClient(opts...)
	return &c
}

// ModelOrDefault returns name as a model id, or DefaultModel when empty.
func ModelOrDefault(name string) anthropic.Model {
	if name == "" {
		return DefaultModel
	}
	return anthropic.Model(name)
}

// Transient reports whether err is worth retrying: timeouts, conflicts,
// rate limits, server errors and transport failures.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch s := apiErr.StatusCode; {
		case s == http.StatusRequestTimeout, s == http.StatusConflict, s == http.StatusTooManyRequests:
			return true
		case s >= 500:
			return true
		default:
			return false
		}
	}
	return true
}
