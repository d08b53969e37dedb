package llm

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies why an extraction failed after its retries ran out.
type Kind string

const (
	KindRateLimit Kind = "rate_limit"
	KindTimeout   Kind = "timeout"
	KindAPI       Kind = "api"
	KindParse     Kind = "parse"
)

// Markers set by Completer implementations and by response parsing.
var (
	ErrRateLimited = errors.New("model rate limited")
	ErrTimeout     = errors.New("model call timed out")
	ErrProvider    = errors.New("model provider error")
	ErrMalformed   = errors.New("malformed model response")
)

// KindOf maps a marked error onto a Kind. Unmarked errors count as API errors.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrRateLimited):
		return KindRateLimit
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrMalformed):
		return KindParse
	}
	return KindAPI
}

// ExtractionError is returned once the retry budget is spent.
type ExtractionError struct {
	Kind     Kind
	Attempts int
	Cause    error
}

func (e *ExtractionError) Error() string {
	var what string
	switch e.Kind {
	case KindRateLimit:
		what = "rate limit exceeded"
	case KindTimeout:
		what = "API timeout"
	case KindParse:
		what = "failed to parse LLM response"
	default:
		what = "API error"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s after %d attempts", what, e.Attempts)
	}
	return fmt.Sprintf("%s after %d attempts: %v", what, e.Attempts, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// AsExtractionError extracts an *ExtractionError from err's chain.
func AsExtractionError(err error) (*ExtractionError, bool) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
