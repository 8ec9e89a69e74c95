package domain

import (
	"errors"
)

// Reasoning executor failure kinds. The LLM interface does not guarantee
// structured output, so callers must treat ErrMalformedResponse as a
// normal outcome rather than a bug.
var (
	ErrTimeout           = errors.New("executor timeout")
	ErrRateLimited       = errors.New("executor rate limited")
	ErrAuth              = errors.New("executor authentication failed")
	ErrMalformedResponse = errors.New("malformed executor response")
)

// Data executor failure kinds.
var (
	ErrConnectionFailed = errors.New("data source connection failed")
	ErrQueryInvalid     = errors.New("data request invalid")
)

// Pipeline failure taxonomy. Each is recovered at the boundary of the
// component that detects it whenever a safe degraded value exists.
var (
	// ErrClassificationDegraded marks a Plan produced by a fallback tier.
	ErrClassificationDegraded = errors.New("classification degraded")
	// ErrNodeFailed marks a node whose retry budget is exhausted.
	ErrNodeFailed = errors.New("node failed")
	// ErrRunFailed marks a run short-circuited by a critical node failure.
	ErrRunFailed = errors.New("run failed")
	// ErrRoutingGap marks a (intent, complexity) pair missing from the
	// routing table. Misconfiguration, not a runtime condition.
	ErrRoutingGap = errors.New("routing table gap")
	// ErrStoreUnavailable marks a session read/write failure; the request
	// proceeds with an ephemeral context.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrKeyNotFound is returned by KV stores for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)

// IsTransient reports whether an executor error is worth retrying.
// Only timeouts, rate limits and connection failures qualify; invalid
// requests and auth failures will not heal on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrConnectionFailed)
}
