// Package bus is the process-wide publish/subscribe event bus. Producers
// publish msgpack-encoded events on a named channel and return immediately;
// one long-running consumer per channel receives and dispatches them.
//
// Delivery is at-most-once. A publish that cannot reach the broker is logged
// and dropped. A consumer whose broker connection fails returns; there is no
// reconnect loop, the process supervisor restarts the service instead.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"hatch/internal/platform/metrics"
	"hatch/pkg/platform/tasks"
	"hatch/pkg/requestcontext"
)

const (
	ChannelAudits  = "audits"
	ChannelReports = "reports"
)

// Message is one payload received on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Handler consumes messages for a channel. A returned error is logged and
// the message is dropped.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type Bus struct {
	broker  Broker
	tasks   *tasks.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Bus)

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

func New(broker Broker, group *tasks.Group, logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{broker: broker, tasks: group, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish encodes event and sends it on channel from a background task. Only
// an encoding failure is returned; send failures are logged and counted.
func (b *Bus) Publish(ctx context.Context, channel string, event any) error {
	payload, err := Encode(event)
	if err != nil {
		return fmt.Errorf("publish on %s: %w", channel, err)
	}
	requestID := requestcontext.RequestID(ctx)
	b.tasks.Go("publish:"+channel, func(ctx context.Context) error {
		b.send(ctx, channel, payload, requestID)
		return nil
	})
	return nil
}

func (b *Bus) send(ctx context.Context, channel string, payload []byte, requestID string) {
	if err := b.broker.Publish(ctx, channel, payload); err != nil {
		b.logger.WarnContext(ctx, "event dropped",
			"channel", channel,
			"error", err,
			"request_id", requestID,
		)
		b.metrics.IncEventDropped(channel)
		return
	}
	b.metrics.IncEventPublished(channel)
}

// SubscribeAndRun subscribes to channel and hands every message to h in
// receipt order until ctx is done or the subscription fails. Handler errors
// and panics drop only the message being handled.
func (b *Bus) SubscribeAndRun(ctx context.Context, channel string, h Handler) error {
	sub, err := b.broker.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	defer sub.Close()

	b.logger.InfoContext(ctx, "consumer started", "channel", channel)
	for {
		payload, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.ErrorContext(ctx, "consumer stopped", "channel", channel, "error", err)
			return fmt.Errorf("receive on %s: %w", channel, err)
		}
		b.dispatch(ctx, h, Message{Channel: channel, Payload: payload})
	}
}

var errHandlerPanic = errors.New("handler panicked")

func (b *Bus) dispatch(ctx context.Context, h Handler, msg Message) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.ErrorContext(ctx, "event handler panicked",
					"channel", msg.Channel,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				err = errHandlerPanic
			}
		}()
		return h.Handle(ctx, msg)
	}()

	switch {
	case errors.Is(err, errHandlerPanic):
		b.metrics.IncEventDispatched(msg.Channel, "panic")
	case err != nil:
		b.logger.WarnContext(ctx, "event handler failed", "channel", msg.Channel, "error", err)
		b.metrics.IncEventDispatched(msg.Channel, "error")
	default:
		b.metrics.IncEventDispatched(msg.Channel, "ok")
	}
}
