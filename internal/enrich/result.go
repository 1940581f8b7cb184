// Package enrich improves line-item categories and header fields with a
// completion model, falling back to deterministic rules when the model
// cannot be used.
package enrich

import "github.com/joseph-ayodele/invoice-tracker/constants"

// Result carries the output of one enrichment sub-operation. Value is always
// usable: on DEGRADED it holds the deterministic fallback.
//
// A sub-operation either stays NOT_ATTEMPTED or moves to REQUESTED when the
// completion call is issued, then settles once as SUCCEEDED or DEGRADED.
type Result[T any] struct {
	Value  T
	Status constants.EnrichmentStatus
	Reason string
}

func NotAttempted[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: constants.EnrichmentNotAttempted}
}

func Requested[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: constants.EnrichmentRequested}
}

// Succeed settles a REQUESTED result. Any other result is returned as is.
func (r Result[T]) Succeed(v T) Result[T] {
	return r.settle(v, constants.EnrichmentSucceeded, "")
}

// Degrade settles a REQUESTED result with the fallback value v.
func (r Result[T]) Degrade(v T, reason string) Result[T] {
	return r.settle(v, constants.EnrichmentDegraded, reason)
}

func (r Result[T]) settle(v T, status constants.EnrichmentStatus, reason string) Result[T] {
	if r.Status != constants.EnrichmentRequested {
		return r
	}
	return Result[T]{Value: v, Status: status, Reason: reason}
}

func (r Result[T]) Succeeded() bool { return r.Status == constants.EnrichmentSucceeded }

func (r Result[T]) Degraded() bool { return r.Status == constants.EnrichmentDegraded }
