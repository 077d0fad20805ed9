package bus

import (
	"context"
	"log/slog"
)

// Router dispatches messages to channel-specific handlers. Use it when one
// consumer loop serves several channels, or to give a loop a fallback.
type Router struct {
	handlers map[string]Handler
	fallback Handler
	logger   *slog.Logger
}

// NewRouter creates a channel router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback Handler) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a specific channel.
func (r *Router) Register(channel string, h Handler) {
	r.handlers[channel] = h
}

// Channels lists the registered channel names.
func (r *Router) Channels() []string {
	out := make([]string, 0, len(r.handlers))
	for ch := range r.handlers {
		out = append(out, ch)
	}
	return out
}

func (r *Router) Handle(ctx context.Context, msg Message) error {
	h, ok := r.handlers[msg.Channel]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, msg)
		}
		r.logger.WarnContext(ctx, "no handler for channel, skipping message",
			"channel", msg.Channel,
			"size", len(msg.Payload),
		)
		return nil
	}
	return h.Handle(ctx, msg)
}
