package models

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a unit of work did not produce a record
type FailureKind string

const (
	FailureNetwork    FailureKind = "network"    // timeout, connection error
	FailureBlocked    FailureKind = "blocked"    // bot detection (403/429)
	FailureHTTP       FailureKind = "http"       // other non-success status (404, 5xx after retries)
	FailureParse      FailureKind = "parse"      // expected structure absent
	FailureValidation FailureKind = "validation" // record missing its name
)

// ErrMissingName is returned when no extraction strategy found a company name
var ErrMissingName = errors.New("record has no name")

// Failure wraps an error with its kind and the locator it happened on
type Failure struct {
	Kind    FailureKind
	Locator string
	Err     error
}

// NewFailure creates a Failure
func NewFailure(kind FailureKind, locator string, err error) *Failure {
	return &Failure{Kind: kind, Locator: locator, Err: err}
}

func (f *Failure) Error() string {
	if f.Locator == "" {
		return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s failure for %s: %v", f.Kind, f.Locator, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether the fetcher may retry this kind locally
func (f *Failure) Retryable() bool {
	return f.Kind == FailureNetwork || f.Kind == FailureBlocked
}

// KindOf extracts the failure kind from an error chain, defaulting to parse
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, ErrMissingName) {
		return FailureValidation
	}
	return FailureParse
}
