package httptransport

import (
	"context"
	"net/http"

	"go.uber.org/mock/gomock"

	"hatch/internal/guard"
	"hatch/internal/moderation"
	"hatch/pkg/testutil"
)

func (s *HandlerSuite) admin(path string, body any, key string) int {
	req := s.request(http.MethodPost, path, body)
	if key != "" {
		req.Header.Set(guard.AdminKeyHeader, key)
	}
	return s.serve(req).Code
}

func (s *HandlerSuite) TestAdminBans() {
	ctx := context.Background()

	s.Run("ban and unban round trip", func() {
		s.Equal(http.StatusOK, s.admin("/admin/ip-ban", ipRequest{IP: "192.0.2.44"}, testAdminKey))
		banned, err := s.store.IsIPBanned(ctx, "192.0.2.44")
		s.Require().NoError(err)
		s.True(banned)

		rec := s.request(http.MethodPost, "/admin/banned", ipRequest{IP: "192.0.2.44"})
		rec.Header.Set(guard.AdminKeyHeader, testAdminKey)
		res := s.serve(rec)
		s.Equal(http.StatusOK, res.Code)
		s.True(testutil.UnmarshalResponse[bannedResponse](s.T(), res).Banned)

		s.Equal(http.StatusOK, s.admin("/admin/ip-unban", ipRequest{IP: "192.0.2.44"}, testAdminKey))
		banned, err = s.store.IsIPBanned(ctx, "192.0.2.44")
		s.Require().NoError(err)
		s.False(banned)
	})

	s.Run("wrong or missing key", func() {
		s.Equal(http.StatusUnauthorized, s.admin("/admin/ip-ban", ipRequest{IP: "192.0.2.45"}, "guess"))
		s.Equal(http.StatusUnauthorized, s.admin("/admin/ip-ban", ipRequest{IP: "192.0.2.45"}, ""))
		banned, err := s.store.IsIPBanned(ctx, "192.0.2.45")
		s.Require().NoError(err)
		s.False(banned)
	})

	s.Run("invalid address", func() {
		s.Equal(http.StatusBadRequest, s.admin("/admin/ip-ban", ipRequest{IP: "not-an-ip"}, testAdminKey))
	})
}

func (s *HandlerSuite) TestModeratorBans() {
	ctx := context.Background()
	mod, modToken := s.seedUser("mod", true)

	s.Run("moderator ban is audited", func() {
		s.publisher.EXPECT().Audit(gomock.Any(), moderation.AuditEvent{
			Culprit:     mod.ID,
			Category:    moderation.AuditMod,
			Description: "Banned IP address 192.0.2.50",
		}).Return(nil)

		rec := s.authed(http.MethodPost, "/mod/ip-ban", modToken, ipRequest{IP: "192.0.2.50"})

		s.Equal(http.StatusOK, rec.Code)
		banned, err := s.store.IsIPBanned(ctx, "192.0.2.50")
		s.Require().NoError(err)
		s.True(banned)
	})

	s.Run("moderator unban is audited", func() {
		s.publisher.EXPECT().Audit(gomock.Any(), moderation.AuditEvent{
			Culprit:     mod.ID,
			Category:    moderation.AuditMod,
			Description: "Unbanned IP address 192.0.2.50",
		}).Return(nil)

		rec := s.authed(http.MethodPost, "/mod/ip-unban", modToken, ipRequest{IP: "192.0.2.50"})
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("verified non-moderator is forbidden", func() {
		_, token := s.seedUser("regular", true)
		rec := s.authed(http.MethodPost, "/mod/ip-ban", token, ipRequest{IP: "192.0.2.51"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("unverified moderator name is refused", func() {
		s.Require().NoError(s.store.SetVerified(ctx, mod.ID, false))
		defer func() { s.Require().NoError(s.store.SetVerified(ctx, mod.ID, true)) }()

		rec := s.authed(http.MethodPost, "/mod/ip-ban", modToken, ipRequest{IP: "192.0.2.52"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
