package guard

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"hatch/internal/platform/metrics"
	"hatch/pkg/platform/httputil"
	"hatch/pkg/requestcontext"
)

// Enforcer turns chain outcomes into HTTP behavior.
type Enforcer struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEnforcer(logger *slog.Logger, m *metrics.Metrics) *Enforcer {
	return &Enforcer{logger: logger, metrics: m}
}

// Require guards a single handler. Reject and Forward both end the request,
// since there is no alternate variant to fall through to.
func (e *Enforcer) Require(guards ...Guard) func(http.Handler) http.Handler {
	chain := NewChain(guards...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := chain.Evaluate(r)
			if out.Decision != Allow {
				e.observe(out)
				e.refuse(w, r, out)
				return
			}
			next.ServeHTTP(w, withPrincipal(r, out))
		})
	}
}

// Variant is one guarded implementation of a path.
type Variant struct {
	Chain   Chain
	Handler http.Handler
}

func When(chain Chain, h http.HandlerFunc) Variant {
	return Variant{Chain: chain, Handler: h}
}

// Route tries variants in order. A Forward moves on to the next variant; a
// Reject terminates. When every variant forwards, the last forward is written.
func (e *Enforcer) Route(variants ...Variant) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last := Forwarded(http.StatusNotFound, "no route")
		for _, v := range variants {
			out := v.Chain.Evaluate(r)
			switch out.Decision {
			case Allow:
				v.Handler.ServeHTTP(w, withPrincipal(r, out))
				return
			case Reject:
				e.observe(out)
				e.refuse(w, r, out)
				return
			default:
				e.observe(out)
				last = out
			}
		}
		e.refuse(w, r, last)
	})
}

func withPrincipal(r *http.Request, out Outcome) *http.Request {
	if out.Principal == nil {
		return r
	}
	return r.WithContext(requestcontext.WithPrincipal(r.Context(), *out.Principal))
}

func (e *Enforcer) observe(out Outcome) {
	if out.Guard != "" {
		e.metrics.ObserveGuard(out.Guard, out.Decision.String())
	}
}

func (e *Enforcer) refuse(w http.ResponseWriter, r *http.Request, out Outcome) {
	ctx := r.Context()
	e.logger.InfoContext(ctx, "request refused by guard",
		"guard", out.Guard,
		"decision", out.Decision.String(),
		"status", out.Status,
		"reason", out.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	if out.RetryAfter > 0 {
		secs := int(math.Ceil(out.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	httputil.WriteStatus(w, out.Status, out.Reason)
}
