package bus

import (
	"context"
	"fmt"
	"time"

	"hatch/pkg/requestcontext"
)

// Scheduler publishes an event after a delay. A scheduled event cannot be
// cancelled: it fires even if the state it refers to has changed, so its
// consumer must tolerate acting on something that is already gone.
type Scheduler struct {
	bus   *Bus
	after func(time.Duration) <-chan time.Time
}

func NewScheduler(b *Bus) *Scheduler {
	return &Scheduler{bus: b, after: time.After}
}

// Schedule returns immediately. The event is encoded now and sent on channel
// once delay has elapsed.
func (s *Scheduler) Schedule(ctx context.Context, channel string, event any, delay time.Duration) error {
	payload, err := Encode(event)
	if err != nil {
		return fmt.Errorf("schedule on %s: %w", channel, err)
	}
	requestID := requestcontext.RequestID(ctx)
	s.bus.tasks.Go("schedule:"+channel, func(ctx context.Context) error {
		<-s.after(delay)
		s.bus.send(ctx, channel, payload, requestID)
		return nil
	})
	return nil
}
