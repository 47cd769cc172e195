package service

import (
	"errors"

	"cors-relay/internal/metrics"
	"cors-relay/internal/policy"
	"cors-relay/internal/target"
)

// rejectionReason maps a failure that stops a request before forwarding to
// its metrics label.
// ErrNoTarget is not a rejection and maps to "".
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, target.ErrAmbiguousQuery):
		return metrics.ReasonAmbiguousQuery
	case errors.Is(err, target.ErrInvalidURL):
		return metrics.ReasonInvalidURL
	case errors.Is(err, policy.ErrTargetDenied):
		return metrics.ReasonDenied
	default:
		return ""
	}
}
