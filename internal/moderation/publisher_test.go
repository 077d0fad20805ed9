package moderation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatch/internal/bus"
	"hatch/internal/moderation"
	"hatch/pkg/platform/tasks"
)

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broker := bus.NewMemoryBroker()
	group := tasks.New(logger)
	b := bus.New(broker, group, logger)
	pub := moderation.NewPublisher(b, bus.NewScheduler(b))

	audits, err := broker.Subscribe(ctx, bus.ChannelAudits)
	require.NoError(t, err)
	reports, err := broker.Subscribe(ctx, bus.ChannelReports)
	require.NoError(t, err)

	receive := func(sub bus.Subscription, v any) {
		rctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		payload, err := sub.Receive(rctx)
		require.NoError(t, err)
		require.NoError(t, bus.Decode(payload, v))
	}

	audit := moderation.AuditEvent{Culprit: 1, Category: moderation.AuditMod, Description: "Banned IP"}
	require.NoError(t, pub.Audit(ctx, audit))
	var gotAudit moderation.AuditEvent
	receive(audits, &gotAudit)
	assert.Equal(t, audit, gotAudit)

	report, err := moderation.NewReportEvent(1, 4, "phishing", moderation.NumericResource(3), moderation.LocationProject)
	require.NoError(t, err)
	require.NoError(t, pub.Report(ctx, report))
	var gotReport moderation.ReportEvent
	receive(reports, &gotReport)
	assert.Equal(t, report, gotReport)

	deletion := moderation.AuditEvent{Culprit: 1, Category: moderation.AuditUser, Action: moderation.ActionAccountDeletion}
	require.NoError(t, pub.ScheduleAudit(ctx, deletion, 20*time.Millisecond))
	var gotDeletion moderation.AuditEvent
	receive(audits, &gotDeletion)
	assert.Equal(t, deletion, gotDeletion)

	group.Wait()
}
