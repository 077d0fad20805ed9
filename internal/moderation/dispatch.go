package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hatch/internal/bus"
	"hatch/internal/webhook"
	"hatch/pkg/domain"
	"hatch/pkg/platform/sentinel"
)

var tracer = otel.Tracer("hatch/internal/moderation")

// dispatcher holds what both channel consumers share. A nil notifier means
// no webhook is configured and dispatch does nothing after decoding.
type dispatcher struct {
	users    UsernameResolver
	notifier Notifier
	purger   Purger
	frontend string
	logger   *slog.Logger
}

type Option func(*dispatcher)

func WithNotifier(n Notifier) Option {
	return func(d *dispatcher) {
		d.notifier = n
	}
}

// WithPurger runs account purges for account_deletion audits. Report
// dispatch ignores it.
func WithPurger(p Purger) Option {
	return func(d *dispatcher) {
		d.purger = p
	}
}

// WithFrontendURL sets the base of links placed in notifications.
func WithFrontendURL(base string) Option {
	return func(d *dispatcher) {
		d.frontend = strings.TrimSuffix(base, "/")
	}
}

func newDispatcher(users UsernameResolver, logger *slog.Logger, opts []Option) dispatcher {
	d := dispatcher{users: users, logger: logger, frontend: "https://hatch.lol"}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// displayName resolves a user id for humans. Unknown or unreadable users
// are shown by id.
func (d *dispatcher) displayName(ctx context.Context, id domain.UserID) (string, bool) {
	name, err := d.users.ResolveUsername(ctx, id)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			d.logger.WarnContext(ctx, "username lookup failed", "user_id", id, "error", err)
		}
		return fmt.Sprintf("user #%d", id), false
	}
	return name, true
}

func (d *dispatcher) userURL(name string) string {
	return d.frontend + "/user?u=" + url.QueryEscape(name)
}

func (d *dispatcher) deliver(ctx context.Context, span trace.Span, msg webhook.Message) error {
	if err := d.notifier.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook delivery failed")
		return fmt.Errorf("deliver notification: %w", err)
	}
	return nil
}

// AuditDispatcher consumes the audits channel.
type AuditDispatcher struct {
	dispatcher
}

func NewAuditDispatcher(users UsernameResolver, logger *slog.Logger, opts ...Option) *AuditDispatcher {
	return &AuditDispatcher{dispatcher: newDispatcher(users, logger, opts)}
}

func (d *AuditDispatcher) Handle(ctx context.Context, msg bus.Message) error {
	ctx, span := tracer.Start(ctx, "moderation.audit")
	defer span.End()

	var ev AuditEvent
	if err := bus.Decode(msg.Payload, &ev); err != nil {
		d.logger.WarnContext(ctx, "dropping malformed audit event", "error", err)
		return nil
	}
	span.SetAttributes(
		attribute.Int64("culprit", int64(ev.Culprit)),
		attribute.String("action", ev.Action),
	)

	// The name is read first because a purge removes it.
	var name string
	var known bool
	if d.notifier != nil {
		name, known = d.displayName(ctx, ev.Culprit)
	}

	if ev.Action == ActionAccountDeletion && d.purger != nil {
		if err := d.purger.PurgeAccount(ctx, ev.Culprit); err != nil {
			span.RecordError(err)
			d.logger.ErrorContext(ctx, "account purge failed", "user_id", ev.Culprit, "error", err)
		}
	}

	if d.notifier == nil {
		return nil
	}

	suffix, ok := ev.Category.titleSuffix()
	if !ok {
		d.logger.ErrorContext(ctx, "dropping audit event with unknown category",
			"category", ev.Category,
			"user_id", ev.Culprit,
		)
		return nil
	}

	embed := webhook.Embed{Title: name + suffix, Description: ev.Description}
	if known {
		embed.URL = d.userURL(name)
	}
	return d.deliver(ctx, span, webhook.Single(embed))
}

// ReportDispatcher consumes the reports channel.
type ReportDispatcher struct {
	dispatcher
}

func NewReportDispatcher(users UsernameResolver, logger *slog.Logger, opts ...Option) *ReportDispatcher {
	return &ReportDispatcher{dispatcher: newDispatcher(users, logger, opts)}
}

func (d *ReportDispatcher) Handle(ctx context.Context, msg bus.Message) error {
	ctx, span := tracer.Start(ctx, "moderation.report")
	defer span.End()

	var ev ReportEvent
	if err := bus.Decode(msg.Payload, &ev); err != nil {
		d.logger.WarnContext(ctx, "dropping malformed report event", "error", err)
		return nil
	}
	span.SetAttributes(
		attribute.String("location", ev.Location.String()),
		attribute.String("resource_id", ev.ResourceID.String()),
	)

	if d.notifier == nil {
		return nil
	}

	category, ok := ev.Category.Text()
	if !ok {
		d.logger.ErrorContext(ctx, "dropping report event with unknown category",
			"category", ev.Category,
			"user_id", ev.Reporter,
		)
		return nil
	}

	reporter, _ := d.displayName(ctx, ev.Reporter)
	embed := webhook.Embed{
		Description: fmt.Sprintf("**Reason**\n```\n%s\n\n%s\n```\nReported by %s", category, ev.Reason, reporter),
	}
	switch ev.Location {
	case LocationProject:
		embed.Title = fmt.Sprintf("🛡️ Project %s has been reported", ev.ResourceID)
		embed.URL = d.frontend + "/project?id=" + url.QueryEscape(ev.ResourceID.String())
	case LocationUser:
		embed.Title = fmt.Sprintf("🛡️ User %s has been reported", ev.ResourceID)
		embed.URL = d.userURL(ev.ResourceID.String())
	case LocationComment:
		embed.Title = fmt.Sprintf("🛡️ Comment %s has been reported", ev.ResourceID)
	default:
		d.logger.ErrorContext(ctx, "dropping report event with unknown location", "location", ev.Location)
		return nil
	}
	return d.deliver(ctx, span, webhook.Single(embed))
}
