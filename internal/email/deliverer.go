package email

//go:generate mockgen -source=deliverer.go -destination=mocks/mocks.go -package=mocks Primary,Fallback,Notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"hatch/internal/platform/metrics"
	"hatch/internal/webhook"
	"hatch/pkg/platform/tasks"
	"hatch/pkg/requestcontext"
)

var tracer = otel.Tracer("hatch/internal/email")

// Primary is a provider that reports delivery status after the fact.
type Primary interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
	DeliveryStatus(ctx context.Context, messageID string) (string, error)
}

// Fallback is a provider that only accepts or refuses a message.
type Fallback interface {
	Send(ctx context.Context, msg Message) error
}

type Notifier interface {
	Send(ctx context.Context, msg webhook.Message) error
}

// Attempt is the outcome of one verification email. It only lives as long as
// the background task that fills it in.
type Attempt struct {
	MessageID    string
	Status       string
	FallbackUsed bool
	FallbackOK   bool
	// SendErr means the primary never accepted the message.
	SendErr error
	// StatusErr means the primary accepted the message but its delivery
	// status could not be read.
	StatusErr error
}

// failed reports whether the primary provider is known not to have delivered.
// An unreadable status is not a failure: the message may still arrive.
func (a Attempt) failed() bool {
	return a.SendErr != nil || a.Status == StatusHardFail || a.Status == StatusHeld
}

// Description is the operator-facing summary posted to the ops webhook.
func (a Attempt) Description(link string) string {
	var text string
	switch {
	case !a.failed() && a.StatusErr != nil:
		text = "❔ We sent a verification to them via Postal, but its delivery status is unknown."
	case !a.failed():
		text = "✅ We were able to send a verification to them via Postal."
	case a.FallbackUsed && a.FallbackOK:
		text = "✅ We were able to send a verification email to them via Resend."
	case a.FallbackUsed:
		text = "❌ We could **not** send a verification email via Resend."
	default:
		status := a.Status
		if a.SendErr != nil {
			status = "send"
		}
		text = fmt.Sprintf("❌ We could **not** send a verification email via Postal (%s error). Resend is not configured.", status)
	}
	return text + " The link to verify is: " + link
}

type Deliverer struct {
	primary     Primary
	fallback    Fallback
	notifier    Notifier
	tasks       *tasks.Group
	from        string
	statusDelay time.Duration
	tokenTTL    time.Duration
	after       func(time.Duration) <-chan time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Deliverer)

func WithFallback(f Fallback) Option {
	return func(d *Deliverer) {
		d.fallback = f
	}
}

// WithNotifier sets the ops webhook. Without one, outcomes are only logged.
func WithNotifier(n Notifier) Option {
	return func(d *Deliverer) {
		d.notifier = n
	}
}

func WithFrom(from string) Option {
	return func(d *Deliverer) {
		d.from = from
	}
}

// WithStatusDelay sets how long to wait before polling the primary's status.
func WithStatusDelay(delay time.Duration) Option {
	return func(d *Deliverer) {
		d.statusDelay = delay
	}
}

// WithTokenTTL sets the link lifetime quoted in the email body.
func WithTokenTTL(ttl time.Duration) Option {
	return func(d *Deliverer) {
		d.tokenTTL = ttl
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Deliverer) {
		d.metrics = m
	}
}

// NewDeliverer builds a deliverer. primary may be nil, in which case every
// email goes straight to the fallback.
func NewDeliverer(primary Primary, group *tasks.Group, logger *slog.Logger, opts ...Option) *Deliverer {
	d := &Deliverer{
		primary:     primary,
		tasks:       group,
		from:        "Hatch <noreply@hatch.lol>",
		statusDelay: 10 * time.Second,
		tokenTTL:    30 * time.Minute,
		after:       time.After,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendVerification renders the email and returns; sending, status polling,
// fallback, and the ops report happen on a background task.
func (d *Deliverer) SendVerification(ctx context.Context, username, address, link string) error {
	msg, err := renderVerification(d.from, username, address, link, d.tokenTTL)
	if err != nil {
		return err
	}
	requestID := requestcontext.RequestID(ctx)
	d.tasks.Go("verification_email", func(ctx context.Context) error {
		ctx, span := tracer.Start(ctx, "email.verification")
		defer span.End()
		span.SetAttributes(attribute.String("request_id", requestID))

		attempt := d.Attempt(ctx, msg)
		span.SetAttributes(
			attribute.String("status", attempt.Status),
			attribute.Bool("fallback_used", attempt.FallbackUsed),
		)
		d.report(ctx, username, link, attempt, requestID)
		return nil
	})
	return nil
}

// Attempt runs one delivery to completion: primary send, status poll after
// the configured delay, and a fallback send when the primary refused or
// reported HardFail or Held.
func (d *Deliverer) Attempt(ctx context.Context, msg Message) Attempt {
	var a Attempt
	if d.primary == nil {
		a.SendErr = errNoPrimary
	} else {
		a.MessageID, a.SendErr = d.primary.Send(ctx, msg)
		if a.SendErr == nil {
			<-d.after(d.statusDelay)
			a.Status, a.StatusErr = d.primary.DeliveryStatus(ctx, a.MessageID)
		}
		d.metrics.IncEmailDelivery("postal", primaryResult(a))
	}

	if a.failed() && d.fallback != nil {
		a.FallbackUsed = true
		err := d.fallback.Send(ctx, msg)
		a.FallbackOK = err == nil
		if err != nil {
			d.logger.WarnContext(ctx, "fallback email send failed", "error", err)
			d.metrics.IncEmailDelivery("resend", "failure")
		} else {
			d.metrics.IncEmailDelivery("resend", "success")
		}
	}
	return a
}

var errNoPrimary = errors.New("primary email provider not configured")

func primaryResult(a Attempt) string {
	switch {
	case a.SendErr != nil:
		return "failure"
	case a.StatusErr != nil:
		return "unknown"
	case a.failed():
		return "rejected"
	default:
		return "success"
	}
}

func (d *Deliverer) report(ctx context.Context, username, link string, a Attempt, requestID string) {
	if a.SendErr != nil {
		d.logger.WarnContext(ctx, "primary email send failed",
			"error", a.SendErr,
			"username", username,
			"request_id", requestID,
		)
	}
	if a.StatusErr != nil {
		d.logger.WarnContext(ctx, "primary email status unavailable",
			"error", a.StatusErr,
			"message_id", a.MessageID,
			"username", username,
			"request_id", requestID,
		)
	}
	if d.notifier == nil {
		return
	}
	err := d.notifier.Send(ctx, webhook.Single(webhook.Embed{
		Title:       username + " has joined hatch",
		Description: a.Description(link),
	}))
	if err != nil {
		d.logger.WarnContext(ctx, "failed to report email delivery",
			"error", err,
			"username", username,
			"request_id", requestID,
		)
	}
}
