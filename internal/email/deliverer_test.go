package email_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hatch/internal/email"
	"hatch/internal/email/mocks"
	"hatch/internal/webhook"
	"hatch/pkg/platform/tasks"
)

const link = "https://api.hatch.lol/auth/verify?email_token=abc123"

type DelivererSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	primary  *mocks.MockPrimary
	fallback *mocks.MockFallback
	notifier *mocks.MockNotifier
	group    *tasks.Group
	logger   *slog.Logger
}

func TestDelivererSuite(t *testing.T) {
	suite.Run(t, new(DelivererSuite))
}

func (s *DelivererSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.primary = mocks.NewMockPrimary(s.ctrl)
	s.fallback = mocks.NewMockFallback(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.group = tasks.New(s.logger)
}

func (s *DelivererSuite) deliverer(opts ...email.Option) *email.Deliverer {
	opts = append([]email.Option{
		email.WithNotifier(s.notifier),
		email.WithStatusDelay(time.Millisecond),
	}, opts...)
	return email.NewDeliverer(s.primary, s.group, s.logger, opts...)
}

// expectReport captures the ops webhook message.
func (s *DelivererSuite) expectReport() *webhook.Message {
	var got webhook.Message
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m webhook.Message) error {
		got = m
		return nil
	})
	return &got
}

func (s *DelivererSuite) TestPrimaryDelivered() {
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m email.Message) (string, error) {
		s.Equal("alice@example.com", m.To)
		s.Contains(m.HTML, link)
		s.Contains(m.HTML, "alice")
		return "17", nil
	})
	s.primary.EXPECT().DeliveryStatus(gomock.Any(), "17").Return("Sent", nil)
	got := s.expectReport()

	s.Require().NoError(s.deliverer().SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.group.Wait()

	s.Require().Len(got.Embeds, 1)
	s.Equal("alice has joined hatch", got.Embeds[0].Title)
	s.Equal("✅ We were able to send a verification to them via Postal. The link to verify is: "+link, got.Embeds[0].Description)
}

func (s *DelivererSuite) TestHardFailUsesFallback() {
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return("17", nil)
	s.primary.EXPECT().DeliveryStatus(gomock.Any(), "17").Return(email.StatusHardFail, nil)
	s.fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	got := s.expectReport()

	s.Require().NoError(s.deliverer(email.WithFallback(s.fallback)).SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.group.Wait()

	s.True(strings.HasPrefix(got.Embeds[0].Description, "✅ We were able to send a verification email to them via Resend."))
}

func (s *DelivererSuite) TestHeldWithFailingFallback() {
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return("17", nil)
	s.primary.EXPECT().DeliveryStatus(gomock.Any(), "17").Return(email.StatusHeld, nil)
	s.fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("422"))
	got := s.expectReport()

	s.Require().NoError(s.deliverer(email.WithFallback(s.fallback)).SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.group.Wait()

	s.Equal("❌ We could **not** send a verification email via Resend. The link to verify is: "+link, got.Embeds[0].Description)
}

func (s *DelivererSuite) TestHardFailWithoutFallback() {
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return("17", nil)
	s.primary.EXPECT().DeliveryStatus(gomock.Any(), "17").Return(email.StatusHardFail, nil)
	got := s.expectReport()

	s.Require().NoError(s.deliverer().SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.group.Wait()

	s.Equal("❌ We could **not** send a verification email via Postal (HardFail error). Resend is not configured. The link to verify is: "+link, got.Embeds[0].Description)
}

func (s *DelivererSuite) TestPrimarySendErrorFallsBack() {
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("connection refused"))
	s.fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	got := s.expectReport()

	s.Require().NoError(s.deliverer(email.WithFallback(s.fallback)).SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.group.Wait()

	s.Contains(got.Embeds[0].Description, "via Resend")
}

func (s *DelivererSuite) TestStatusErrorDoesNotResend() {
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return("7", nil)
	s.primary.EXPECT().DeliveryStatus(gomock.Any(), "7").Return("", errors.New("gateway timeout"))
	s.fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)
	got := s.expectReport()

	s.Require().NoError(s.deliverer(email.WithFallback(s.fallback)).SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.group.Wait()

	s.Equal("❔ We sent a verification to them via Postal, but its delivery status is unknown. The link to verify is: "+link, got.Embeds[0].Description)
}

// Registration gets its answer before the provider has done anything; the
// ops webhook hears about it later.
func (s *DelivererSuite) TestSendVerificationDoesNotWaitForProvider() {
	release := make(chan struct{})
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, email.Message) (string, error) {
		<-release
		return "1", nil
	})
	s.primary.EXPECT().DeliveryStatus(gomock.Any(), "1").Return("Sent", nil)
	got := s.expectReport()

	start := time.Now()
	s.Require().NoError(s.deliverer().SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.Less(time.Since(start), 100*time.Millisecond)

	close(release)
	s.group.Wait()
	s.Contains(got.Embeds[0].Description, link)
}

func (s *DelivererSuite) TestWithoutNotifierOnlyLogs() {
	s.primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("down"))

	d := email.NewDeliverer(s.primary, s.group, s.logger, email.WithStatusDelay(time.Millisecond))
	s.Require().NoError(d.SendVerification(context.Background(), "alice", "alice@example.com", link))
	s.group.Wait()
}

func (s *DelivererSuite) TestAttemptDescriptions() {
	s.Equal("❌ We could **not** send a verification email via Postal (send error). Resend is not configured. The link to verify is: x",
		email.Attempt{SendErr: errors.New("boom")}.Description("x"))
	s.Equal("❔ We sent a verification to them via Postal, but its delivery status is unknown. The link to verify is: x",
		email.Attempt{MessageID: "7", StatusErr: errors.New("timeout")}.Description("x"))
	s.Equal("✅ We were able to send a verification to them via Postal. The link to verify is: x",
		email.Attempt{Status: "Sent"}.Description("x"))
}
