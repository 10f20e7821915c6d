// Package dispatch turns a recipient list and a message into provider calls
// and a per-recipient summary. Every recipient yields exactly one Result.
package dispatch

import (
	"fmt"

	"go.opentelemetry.io/otel"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// NetworkError is the detail recorded when the call itself failed and the
// provider never answered.
const NetworkError = "Network error"

var tracer = otel.Tracer("github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch")

type Result struct {
	Recipient  string
	Status     Status
	ProviderID string
	Error      string
	Code       int
}

type Summary struct {
	Success bool
	Sent    int
	Failed  int
	Message string
	Results []Result
}

// ValidationError means the caller sent unusable input. Nothing was sent.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ConfigError means the server lacks credentials or a sender identity.
// Nothing was sent.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return e.Msg }

// ProviderError is a rejection answered by the provider, as opposed to a
// transport failure.
type ProviderError struct {
	Status  int
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("provider rejected request (status %d, code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider rejected request (status %d): %s", e.Status, e.Message)
}

// Detail is the text recorded on a failed result.
func (e *ProviderError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Provider error (status %d)", e.Status)
}

// configChecker is implemented by senders that can tell whether their
// credentials are present.
type configChecker interface {
	CheckConfig() error
}

// Summarize counts results and phrases the outcome, e.g.
// "Sent 2 emails successfully." or "Sent 1 SMS message with 2 failures.".
func Summarize(results []Result, singular, plural string) Summary {
	s := Summary{Results: results}
	for _, r := range results {
		if r.Status == StatusSent {
			s.Sent++
		} else {
			s.Failed++
		}
	}
	s.Success = s.Failed == 0

	noun := plural
	if s.Sent == 1 {
		noun = singular
	}
	if s.Success {
		s.Message = fmt.Sprintf("Sent %d %s successfully.", s.Sent, noun)
		return s
	}
	failures := "failures"
	if s.Failed == 1 {
		failures = "failure"
	}
	s.Message = fmt.Sprintf("Sent %d %s with %d %s.", s.Sent, noun, s.Failed, failures)
	return s
}
