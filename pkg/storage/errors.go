package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/marmos91/s3dav/pkg/store/blob"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// Kind classifies a coordinator error.
type Kind int

const (
	// KindNotFound marks an expected absence: missing entity, record or
	// blob. Never fatal on its own.
	KindNotFound Kind = iota

	// KindTransient marks a network or throttling failure. The caller may
	// retry the whole operation; individual store steps are idempotent.
	KindTransient

	// KindPermanent marks an auth, config or malformed-request failure.
	// Retrying will not help.
	KindPermanent

	// KindInvariantViolation marks a corrupted or forbidden state, such as
	// multiple roots or an attempt to delete the root.
	KindInvariantViolation

	// KindPartialFailure marks a multi-step operation that succeeded in one
	// store but not the other. The stores are now inconsistent and may need
	// reconciliation; the wrapped error describes what was left behind.
	KindPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "transient service error"
	case KindPermanent:
		return "permanent service error"
	case KindInvariantViolation:
		return "invariant violation"
	case KindPartialFailure:
		return "partial failure"
	default:
		return "unknown"
	}
}

// Error is the coordinator's error type. Store-level errors are never
// swallowed; they are wrapped here with a classification and the operation
// that produced them.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a coordinator not-found error.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	return hasKind(err, KindTransient)
}

// IsInvariantViolation reports whether err marks a corrupted or forbidden
// state.
func IsInvariantViolation(err error) bool {
	return hasKind(err, KindInvariantViolation)
}

// IsPartialFailure reports whether err marks a cross-store inconsistency.
func IsPartialFailure(err error) bool {
	return hasKind(err, KindPartialFailure)
}

func hasKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func invariantf(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvariantViolation, Op: op, Err: fmt.Errorf(format, args...)}
}

func partialf(op, format string, args ...any) *Error {
	return &Error{Kind: KindPartialFailure, Op: op, Err: fmt.Errorf(format, args...)}
}

// Throttling surfaces as a client fault in the SDK but is retryable.
var throttleCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"SlowDown":                               true,
	"TooManyRequestsException":               true,
}

// classify wraps a store error with its taxonomy kind.
//
// Sentinel errors map directly. AWS API errors are discriminated on their
// fault: server faults and throttling are transient, other client faults are
// permanent. Errors carrying no classification signal are treated as
// transient, matching the connection-failure shape they most often have.
func classify(op string, err error) *Error {
	switch {
	case errors.Is(err, blob.ErrNotFound), errors.Is(err, table.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	case errors.Is(err, table.ErrTableNotFound):
		return &Error{Kind: KindPermanent, Op: op, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTransient, Op: op, Err: err}
	}

	var api smithy.APIError
	if errors.As(err, &api) {
		if throttleCodes[api.ErrorCode()] {
			return &Error{Kind: KindTransient, Op: op, Err: err}
		}
		switch api.ErrorFault() {
		case smithy.FaultClient:
			return &Error{Kind: KindPermanent, Op: op, Err: err}
		default:
			return &Error{Kind: KindTransient, Op: op, Err: err}
		}
	}

	return &Error{Kind: KindTransient, Op: op, Err: err}
}
