package moderation

import (
	"context"
	"time"

	"hatch/internal/bus"
)

// Publisher is the producer side used by route handlers.
type Publisher struct {
	bus       *bus.Bus
	scheduler *bus.Scheduler
}

func NewPublisher(b *bus.Bus, s *bus.Scheduler) *Publisher {
	return &Publisher{bus: b, scheduler: s}
}

func (p *Publisher) Audit(ctx context.Context, ev AuditEvent) error {
	return p.bus.Publish(ctx, bus.ChannelAudits, ev)
}

func (p *Publisher) Report(ctx context.Context, ev ReportEvent) error {
	return p.bus.Publish(ctx, bus.ChannelReports, ev)
}

// ScheduleAudit publishes ev on the audits channel after delay. It cannot be
// called off.
func (p *Publisher) ScheduleAudit(ctx context.Context, ev AuditEvent, delay time.Duration) error {
	return p.scheduler.Schedule(ctx, bus.ChannelAudits, ev, delay)
}
