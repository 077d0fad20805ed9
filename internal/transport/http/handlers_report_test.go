package httptransport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"hatch/internal/moderation"
	"hatch/pkg/platform/middleware/metadata"
)

func (s *HandlerSuite) TestReportProject() {
	ctx := context.Background()
	reporter, token := s.seedUser("reporter", true)
	author, _ := s.seedUser("author", true)
	projectID, err := s.store.AddProject(ctx, author.ID)
	s.Require().NoError(err)
	path := fmt.Sprintf("/projects/%d/report", projectID)

	s.Run("first report is stored and published", func() {
		s.publisher.EXPECT().Report(gomock.Any(), moderation.ReportEvent{
			Reporter:   reporter.ID,
			Category:   3,
			Reason:     "buy followers",
			ResourceID: moderation.NumericResource(uint64(projectID)),
			Location:   moderation.LocationProject,
		}).Return(nil)

		rec := s.authed(http.MethodPost, path, token, reportRequest{Category: 3, Reason: "  buy followers "})

		s.Equal(http.StatusOK, rec.Code)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ReportsFiled.WithLabelValues("project")))
	})

	s.Run("second report of the same project conflicts", func() {
		_, other := s.seedUser("second", true)
		rec := s.authed(http.MethodPost, path, other, reportRequest{Category: 0, Reason: "again"})
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("invalid category is rejected before storing", func() {
		second, err := s.store.AddProject(ctx, author.ID)
		s.Require().NoError(err)
		rec := s.authed(http.MethodPost, fmt.Sprintf("/projects/%d/report", second), token, reportRequest{Category: 5})
		s.Equal(http.StatusBadRequest, rec.Code)

		s.publisher.EXPECT().Report(gomock.Any(), gomock.Any()).Return(nil)
		rec = s.authed(http.MethodPost, fmt.Sprintf("/projects/%d/report", second), token, reportRequest{Category: 4})
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("unknown project", func() {
		rec := s.authed(http.MethodPost, "/projects/9999/report", token, reportRequest{Category: 0})
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed project id", func() {
		rec := s.authed(http.MethodPost, "/projects/abc/report", token, reportRequest{Category: 0})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("publish failure does not fail the request", func() {
		third, err := s.store.AddProject(ctx, author.ID)
		s.Require().NoError(err)
		s.publisher.EXPECT().Report(gomock.Any(), gomock.Any()).Return(fmt.Errorf("encode"))

		rec := s.authed(http.MethodPost, fmt.Sprintf("/projects/%d/report", third), token, reportRequest{Category: 1})
		s.Equal(http.StatusOK, rec.Code)
	})
}

func (s *HandlerSuite) TestReportUser() {
	reporter, token := s.seedUser("watcher", true)
	s.seedUser("Troll", true)

	s.publisher.EXPECT().Report(gomock.Any(), moderation.ReportEvent{
		Reporter:   reporter.ID,
		Category:   2,
		Reason:     "rude",
		ResourceID: moderation.NamedResource("Troll"),
		Location:   moderation.LocationUser,
	}).Return(nil)

	rec := s.authed(http.MethodPost, "/users/troll/report", token, reportRequest{Category: 2, Reason: "rude"})
	s.Equal(http.StatusOK, rec.Code)

	rec = s.authed(http.MethodPost, "/users/TROLL/report", token, reportRequest{Category: 2, Reason: "still rude"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.authed(http.MethodPost, "/users/nobody/report", token, reportRequest{Category: 2})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestReportComment() {
	ctx := context.Background()
	reporter, token := s.seedUser("critic", true)
	projectID, err := s.store.AddProject(ctx, reporter.ID)
	s.Require().NoError(err)
	commentID, err := s.store.AddComment(ctx, projectID)
	s.Require().NoError(err)

	s.publisher.EXPECT().Report(gomock.Any(), moderation.ReportEvent{
		Reporter:   reporter.ID,
		Category:   0,
		Reason:     "graphic",
		ResourceID: moderation.NumericResource(uint64(commentID)),
		Location:   moderation.LocationComment,
	}).Return(nil)

	rec := s.authed(http.MethodPost, fmt.Sprintf("/projects/%d/comments/%d/report", projectID, commentID), token,
		reportRequest{Category: 0, Reason: "graphic"})
	s.Equal(http.StatusOK, rec.Code)

	other, err := s.store.AddProject(ctx, reporter.ID)
	s.Require().NoError(err)
	rec = s.authed(http.MethodPost, fmt.Sprintf("/projects/%d/comments/%d/report", other, commentID), token,
		reportRequest{Category: 0})
	s.Equal(http.StatusNotFound, rec.Code, "comment must belong to the project in the path")
}

func (s *HandlerSuite) TestReportGuards() {
	s.Run("banned caller is refused before the token is read", func() {
		s.Require().NoError(s.store.BanIP(context.Background(), "203.0.113.9"))
		req := s.request(http.MethodPost, "/projects/1/report", reportRequest{Category: 0})
		req.Header.Set(metadata.ClientAddressHeader, "203.0.113.9")

		rec := s.serve(req)

		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.GuardOutcomes.WithLabelValues("not_banned", "reject")))
		s.Equal(0.0, testutil.ToFloat64(s.metrics.GuardOutcomes.WithLabelValues("token", "forward")))
	})

	s.Run("anonymous caller", func() {
		rec := s.serve(s.request(http.MethodPost, "/projects/1/report", reportRequest{Category: 0}))
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
