package guard

import "net/http"

// Guard is one authorization predicate.
type Guard interface {
	Name() string
	Check(r *http.Request) Outcome
}

// Chain evaluates guards in declared order and stops at the first outcome
// that is not Allow.
type Chain struct {
	guards []Guard
}

func NewChain(guards ...Guard) Chain {
	return Chain{guards: guards}
}

// Then returns a new chain with more guards appended.
func (c Chain) Then(more ...Guard) Chain {
	guards := make([]Guard, 0, len(c.guards)+len(more))
	guards = append(guards, c.guards...)
	guards = append(guards, more...)
	return Chain{guards: guards}
}

func (c Chain) Len() int { return len(c.guards) }

// Evaluate runs the chain. On success the principal is the one produced by
// the last allowing guard that produced one.
func (c Chain) Evaluate(r *http.Request) Outcome {
	result := Allowed()
	for _, g := range c.guards {
		out := g.Check(r)
		if out.Decision != Allow {
			out.Guard = g.Name()
			return out
		}
		if out.Principal != nil {
			result.Principal = out.Principal
		}
	}
	return result
}
