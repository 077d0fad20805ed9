package httptransport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hatch/internal/credentials"
	"hatch/internal/moderation"
	dErrors "hatch/pkg/domain-errors"
	"hatch/pkg/platform/httputil"
	"hatch/pkg/platform/sentinel"
	"hatch/pkg/requestcontext"
)

func (h *Handler) handleReportProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[reportRequest](w, r, h.logger)
	if !ok {
		return
	}

	exists, err := h.store.ProjectExists(ctx, id)
	if err != nil {
		h.internalError(ctx, w, "failed to look up project", err)
		return
	}
	if !exists {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "project not found"))
		return
	}
	h.fileReport(w, r, req, moderation.NumericResource(uint64(id)), moderation.LocationProject)
}

func (h *Handler) handleReportComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[reportRequest](w, r, h.logger)
	if !ok {
		return
	}

	exists, err := h.store.CommentExists(ctx, projectID, commentID)
	if err != nil {
		h.internalError(ctx, w, "failed to look up comment", err)
		return
	}
	if !exists {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "comment not found"))
		return
	}
	h.fileReport(w, r, req, moderation.NumericResource(uint64(commentID)), moderation.LocationComment)
}

func (h *Handler) handleReportUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[reportRequest](w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.store.UserByName(ctx, chi.URLParam(r, "username"))
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return
	}
	if err != nil {
		h.internalError(ctx, w, "failed to look up user", err)
		return
	}
	h.fileReport(w, r, req, moderation.NamedResource(user.Name), moderation.LocationUser)
}

// fileReport stores the report and publishes it. Each resource can be
// reported once; later reports of it by anyone conflict.
func (h *Handler) fileReport(w http.ResponseWriter, r *http.Request, req *reportRequest, resource moderation.ResourceID, loc moderation.Location) {
	ctx := r.Context()
	p, ok := h.principal(ctx, w)
	if !ok {
		return
	}

	ev, err := moderation.NewReportEvent(p.UserID, req.Category, req.Reason, resource, loc)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid category"))
		return
	}

	err = h.store.CreateReport(ctx, credentials.Report{
		Reporter:   p.UserID,
		Location:   loc.String(),
		ResourceID: resource.String(),
		Category:   req.Category,
		Reason:     req.Reason,
	})
	if errors.Is(err, sentinel.ErrConflict) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, loc.String()+" already reported"))
		return
	}
	if err != nil {
		h.internalError(ctx, w, "failed to store report", err)
		return
	}

	if err := h.publisher.Report(ctx, ev); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish report event",
			"error", err,
			"location", loc.String(),
			"resource_id", resource.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	h.metrics.IncReportFiled(loc.String())
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid "+param))
		return 0, false
	}
	return id, true
}
