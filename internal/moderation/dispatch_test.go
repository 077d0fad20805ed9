package moderation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hatch/internal/bus"
	"hatch/internal/moderation"
	"hatch/internal/moderation/mocks"
	"hatch/internal/webhook"
	"hatch/pkg/domain"
	"hatch/pkg/platform/sentinel"
)

type DispatchSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	users    *mocks.MockUsernameResolver
	notifier *mocks.MockNotifier
	purger   *mocks.MockPurger
	logger   *slog.Logger
}

func TestDispatchSuite(t *testing.T) {
	suite.Run(t, new(DispatchSuite))
}

func (s *DispatchSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockUsernameResolver(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.purger = mocks.NewMockPurger(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *DispatchSuite) message(channel string, ev any) bus.Message {
	payload, err := bus.Encode(ev)
	s.Require().NoError(err)
	return bus.Message{Channel: channel, Payload: payload}
}

func (s *DispatchSuite) expectEmbed(want webhook.Embed) {
	s.notifier.EXPECT().Send(gomock.Any(), webhook.Single(want)).Return(nil)
}

// =============================================================================
// Audits
// =============================================================================

func (s *DispatchSuite) TestAuditWithoutWebhookIsNoop() {
	d := moderation.NewAuditDispatcher(s.users, s.logger)
	// No username lookup and no send are expected.
	err := d.Handle(context.Background(), s.message(bus.ChannelAudits, moderation.AuditEvent{Culprit: 1, Description: "x"}))
	s.NoError(err)
}

func (s *DispatchSuite) TestAuditFormatsModAction() {
	d := moderation.NewAuditDispatcher(s.users, s.logger,
		moderation.WithNotifier(s.notifier),
		moderation.WithFrontendURL("https://hatch.lol/"),
	)
	s.users.EXPECT().ResolveUsername(gomock.Any(), gomock.Eq(domain.UserID(7))).Return("mod_mia", nil)
	s.expectEmbed(webhook.Embed{
		Title:       "mod_mia did a mod action",
		URL:         "https://hatch.lol/user?u=mod_mia",
		Description: "Banned IP 203.0.113.5",
	})

	err := d.Handle(context.Background(), s.message(bus.ChannelAudits, moderation.AuditEvent{
		Culprit:     7,
		Category:    moderation.AuditMod,
		Description: "Banned IP 203.0.113.5",
	}))
	s.NoError(err)
}

func (s *DispatchSuite) TestAuditUnknownUserShownByID() {
	d := moderation.NewAuditDispatcher(s.users, s.logger, moderation.WithNotifier(s.notifier))
	s.users.EXPECT().ResolveUsername(gomock.Any(), gomock.Any()).Return("", sentinel.ErrNotFound)
	s.expectEmbed(webhook.Embed{Title: "user #5 did a user action", Description: "bye"})

	err := d.Handle(context.Background(), s.message(bus.ChannelAudits, moderation.AuditEvent{
		Culprit:     5,
		Category:    moderation.AuditUser,
		Description: "bye",
	}))
	s.NoError(err)
}

func (s *DispatchSuite) TestAccountDeletionPurgesAfterNameLookup() {
	d := moderation.NewAuditDispatcher(s.users, s.logger,
		moderation.WithNotifier(s.notifier),
		moderation.WithPurger(s.purger),
	)
	gomock.InOrder(
		s.users.EXPECT().ResolveUsername(gomock.Any(), domain.UserID(3)).Return("alice", nil),
		s.purger.EXPECT().PurgeAccount(gomock.Any(), domain.UserID(3)).Return(nil),
		s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil),
	)

	err := d.Handle(context.Background(), s.message(bus.ChannelAudits, moderation.AuditEvent{
		Culprit:     3,
		Category:    moderation.AuditUser,
		Description: "Account deleted",
		Action:      moderation.ActionAccountDeletion,
	}))
	s.NoError(err)
}

func (s *DispatchSuite) TestAccountDeletionWithoutWebhookStillPurges() {
	d := moderation.NewAuditDispatcher(s.users, s.logger, moderation.WithPurger(s.purger))
	s.purger.EXPECT().PurgeAccount(gomock.Any(), domain.UserID(3)).Return(errors.New("s3 down"))

	err := d.Handle(context.Background(), s.message(bus.ChannelAudits, moderation.AuditEvent{
		Culprit: 3,
		Action:  moderation.ActionAccountDeletion,
	}))
	s.NoError(err)
}

func (s *DispatchSuite) TestAuditDeliveryFailureIsReturned() {
	d := moderation.NewAuditDispatcher(s.users, s.logger, moderation.WithNotifier(s.notifier))
	s.users.EXPECT().ResolveUsername(gomock.Any(), gomock.Any()).Return("alice", nil)
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("timeout"))

	err := d.Handle(context.Background(), s.message(bus.ChannelAudits, moderation.AuditEvent{Culprit: 1}))
	s.ErrorContains(err, "timeout")
}

func (s *DispatchSuite) TestAuditMalformedPayloadIsDropped() {
	d := moderation.NewAuditDispatcher(s.users, s.logger, moderation.WithNotifier(s.notifier))
	err := d.Handle(context.Background(), bus.Message{Channel: bus.ChannelAudits, Payload: []byte{0xc1}})
	s.NoError(err)
}

func (s *DispatchSuite) TestAuditUnknownCategoryIsDropped() {
	d := moderation.NewAuditDispatcher(s.users, s.logger, moderation.WithNotifier(s.notifier))
	s.users.EXPECT().ResolveUsername(gomock.Any(), gomock.Any()).Return("alice", nil)

	err := d.Handle(context.Background(), s.message(bus.ChannelAudits, moderation.AuditEvent{Culprit: 1, Category: 9}))
	s.NoError(err)
}

// =============================================================================
// Reports
// =============================================================================

func (s *DispatchSuite) TestReportWithoutWebhookIsNoop() {
	d := moderation.NewReportDispatcher(s.users, s.logger)
	ev, err := moderation.NewReportEvent(1, 0, "", moderation.NumericResource(1), moderation.LocationProject)
	s.Require().NoError(err)

	s.NoError(d.Handle(context.Background(), s.message(bus.ChannelReports, ev)))
}

func (s *DispatchSuite) TestReportFormatsByLocation() {
	d := moderation.NewReportDispatcher(s.users, s.logger,
		moderation.WithNotifier(s.notifier),
		moderation.WithFrontendURL("https://hatch.lol"),
	)

	cases := []struct {
		name     string
		resource moderation.ResourceID
		location moderation.Location
		title    string
		url      string
	}{
		{"project", moderation.NumericResource(42), moderation.LocationProject, "🛡️ Project 42 has been reported", "https://hatch.lol/project?id=42"},
		{"user", moderation.NamedResource("mallory"), moderation.LocationUser, "🛡️ User mallory has been reported", "https://hatch.lol/user?u=mallory"},
		{"comment", moderation.NumericResource(8), moderation.LocationComment, "🛡️ Comment 8 has been reported", ""},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			ev, err := moderation.NewReportEvent(2, 3, "buy followers", tc.resource, tc.location)
			s.Require().NoError(err)

			s.users.EXPECT().ResolveUsername(gomock.Any(), domain.UserID(2)).Return("bob", nil)
			s.expectEmbed(webhook.Embed{
				Title:       tc.title,
				URL:         tc.url,
				Description: "**Reason**\n```\nSpam\n\nbuy followers\n```\nReported by bob",
			})

			s.NoError(d.Handle(context.Background(), s.message(bus.ChannelReports, ev)))
		})
	}
}
