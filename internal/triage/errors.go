package triage

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind labels a per-item failure for the run summary.
type FailureKind string

const (
	FailureValidation    FailureKind = "validation"
	FailureAnalysisParse FailureKind = "analysis_parse"
	FailureTransport     FailureKind = "transport"
	FailureCanceled      FailureKind = "canceled"
	FailureInternal      FailureKind = "internal"
)

// ValidationError marks a malformed solicitation. Per-item: the batch
// continues past it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid solicitation: %s: %s", e.Field, e.Reason)
}

// AnalysisParseError marks model output that does not fit the technical-fit
// schema. Recoverable via retry, then surfaced as a per-item failure.
type AnalysisParseError struct {
	Reason string
	Raw    string
}

func (e *AnalysisParseError) Error() string {
	return "analysis output rejected: " + e.Reason
}

// TransportError marks a network or timeout failure on a model call.
// Recoverable via retry, bounded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigurationError marks invalid scoring constants or model identity.
// Fatal: the run does not start.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid triage configuration: " + e.Reason
}

// KindOf classifies an error into the summary failure taxonomy.
func KindOf(err error) FailureKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return FailureValidation
	}
	var pe *AnalysisParseError
	if errors.As(err, &pe) {
		return FailureAnalysisParse
	}
	var te *TransportError
	if errors.As(err, &te) {
		return FailureTransport
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureCanceled
	}
	return FailureInternal
}
