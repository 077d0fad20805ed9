// Package guard implements the per-route authorization chain: an ordered list
// of independent predicates evaluated before a handler runs. Each guard
// re-derives what it needs from the request and the credential store; guards
// share no mutable state.
package guard

import (
	"net/http"
	"time"

	"hatch/pkg/domain"
)

type Decision int

const (
	// Allow lets evaluation continue to the next guard, or the handler.
	Allow Decision = iota
	// Reject terminates the request with Status.
	Reject
	// Forward rejects this route variant but lets an alternate variant for
	// the same path try. When no variant remains, Status is written.
	Forward
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Reject:
		return "reject"
	case Forward:
		return "forward"
	default:
		return "unknown"
	}
}

// Outcome is the result of one guard, or of a whole chain.
type Outcome struct {
	Decision   Decision
	Status     int
	Reason     string
	Principal  *domain.Principal
	RetryAfter time.Duration
	// Guard names the guard that produced a non-allow outcome.
	Guard string
}

func Allowed() Outcome {
	return Outcome{Decision: Allow}
}

// AllowedAs allows the request and establishes p as the caller.
func AllowedAs(p domain.Principal) Outcome {
	return Outcome{Decision: Allow, Principal: &p}
}

func Rejected(status int, reason string) Outcome {
	return Outcome{Decision: Reject, Status: status, Reason: reason}
}

func Forwarded(status int, reason string) Outcome {
	return Outcome{Decision: Forward, Status: status, Reason: reason}
}

func unavailable(reason string) Outcome {
	return Rejected(http.StatusInternalServerError, reason)
}
