// Package cerrors implements the classified-error model used across the
// cache engine (spec §7): every user-visible failure carries a stable
// error-kind code and a human message, never a bare stack trace.
package cerrors

import (
	"fmt"
	"time"
)

// Kind enumerates the error kinds from spec §7.
type Kind int

const (
	// KindNotFound: no entry exists or the entry is expired. Never
	// surfaced as an error from Get — reserved for APIs that need to
	// distinguish "missing" from other failures explicitly.
	KindNotFound Kind = iota
	// KindBudgetExceeded: eviction could not make room for a write.
	KindBudgetExceeded
	// KindProducerFailed: a memoizer/loader producer returned an error.
	KindProducerFailed
	// KindProducerTimeout: a producer exceeded its deadline.
	KindProducerTimeout
	// KindBackendUnavailable: the remote tier is unreachable.
	KindBackendUnavailable
	// KindInvariantViolation: detected internal corruption (e.g. tag
	// index drift). The offending entries are removed; the tier
	// continues operating.
	KindInvariantViolation
	// KindConfigurationError: rejected at construction time.
	KindConfigurationError
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBudgetExceeded:
		return "budget_exceeded"
	case KindProducerFailed:
		return "producer_failed"
	case KindProducerTimeout:
		return "producer_timeout"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindConfigurationError:
		return "configuration_error"
	default:
		return "unknown"
	}
}

// RetryStrategy describes how a retrying caller should space its
// attempts for one class of failure, mirroring the teacher's
// pkg/errors.RetryStrategy.
type RetryStrategy struct {
	ShouldRetry       bool
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// Error is a classified error with a stable code, retry policy, and
// optional cause.
type Error struct {
	Code      string
	Message   string
	Kind      Kind
	Operation string
	Timestamp time.Time
	Retry     *RetryStrategy
	cause     error
}

// retryStrategyFor returns the default retry policy for kind, following
// the teacher's getDefaultRetryStrategy table.
func retryStrategyFor(kind Kind) *RetryStrategy {
	switch kind {
	case KindBackendUnavailable:
		return &RetryStrategy{ShouldRetry: true, MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, BackoffMultiplier: 2.0}
	case KindProducerTimeout:
		return &RetryStrategy{ShouldRetry: true, MaxAttempts: 2, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second, BackoffMultiplier: 1.5}
	default:
		return &RetryStrategy{ShouldRetry: false}
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Operation, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// New creates a classified error with no cause.
func New(kind Kind, operation, message string) *Error {
	return &Error{
		Code:      kind.String(),
		Message:   message,
		Kind:      kind,
		Operation: operation,
		Timestamp: time.Now(),
		Retry:     retryStrategyFor(kind),
	}
}

// Wrap attaches a classification to an existing error.
func Wrap(err error, kind Kind, operation, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:      kind.String(),
		Message:   message,
		Kind:      kind,
		Operation: operation,
		Timestamp: time.Now(),
		Retry:     retryStrategyFor(kind),
		cause:     err,
	}
}

// IsRetryable reports whether the propagation policy (spec §7) allows a
// caller to retry this class of failure.
func (e *Error) IsRetryable() bool {
	return e.Retry != nil && e.Retry.ShouldRetry
}

// GetRetryDelay calculates the backoff delay before attempt (0-based),
// mirroring the teacher's ClassifiedError.GetRetryDelay.
func (e *Error) GetRetryDelay(attempt int) time.Duration {
	if e.Retry == nil || !e.Retry.ShouldRetry {
		return 0
	}
	delay := e.Retry.BaseDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * e.Retry.BackoffMultiplier)
		if delay > e.Retry.MaxDelay {
			delay = e.Retry.MaxDelay
			break
		}
	}
	return delay
}

// Fatal reports whether this error should stop the engine from starting
// (spec §7: ConfigurationError is the only fatal kind).
func (e *Error) Fatal() bool {
	return e.Kind == KindConfigurationError
}

// Convenience constructors matching spec §7's named error kinds.

func NotFound(operation, message string) *Error {
	return New(KindNotFound, operation, message)
}

func BudgetExceeded(operation, message string) *Error {
	return New(KindBudgetExceeded, operation, message)
}

func ProducerFailed(operation string, cause error) *Error {
	return Wrap(cause, KindProducerFailed, operation, "producer returned an error")
}

func ProducerTimeout(operation string) *Error {
	return New(KindProducerTimeout, operation, "producer exceeded its deadline")
}

func BackendUnavailable(operation string, cause error) *Error {
	return Wrap(cause, KindBackendUnavailable, operation, "backend is unreachable")
}

func InvariantViolation(operation, message string) *Error {
	return New(KindInvariantViolation, operation, message)
}

func ConfigurationError(operation, message string) *Error {
	return New(KindConfigurationError, operation, message)
}
