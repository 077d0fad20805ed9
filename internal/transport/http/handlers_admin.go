package httptransport

import (
	"net/http"

	"hatch/internal/moderation"
	"hatch/pkg/platform/httputil"
	"hatch/pkg/requestcontext"
)

func (h *Handler) handleIsBanned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ipRequest](w, r, h.logger)
	if !ok {
		return
	}
	banned, err := h.store.IsIPBanned(ctx, req.IP)
	if err != nil {
		h.internalError(ctx, w, "failed to read ban list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bannedResponse{Banned: banned})
}

func (h *Handler) handleAdminBan(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ban(w, r); ok {
		httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func (h *Handler) handleAdminUnban(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.unban(w, r); ok {
		httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// handleModBan is the moderator variant of ip-ban; it leaves an audit trail.
func (h *Handler) handleModBan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(ctx, w)
	if !ok {
		return
	}
	ip, ok := h.ban(w, r)
	if !ok {
		return
	}
	h.audit(ctx, moderation.AuditEvent{
		Culprit:     p.UserID,
		Category:    moderation.AuditMod,
		Description: "Banned IP address " + ip,
	})
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleModUnban(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(ctx, w)
	if !ok {
		return
	}
	ip, ok := h.unban(w, r)
	if !ok {
		return
	}
	h.audit(ctx, moderation.AuditEvent{
		Culprit:     p.UserID,
		Category:    moderation.AuditMod,
		Description: "Unbanned IP address " + ip,
	})
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) ban(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ipRequest](w, r, h.logger)
	if !ok {
		return "", false
	}
	if err := h.store.BanIP(ctx, req.IP); err != nil {
		h.internalError(ctx, w, "failed to ban address", err)
		return "", false
	}
	h.logger.InfoContext(ctx, "address banned",
		"ip", req.IP,
		"request_id", requestcontext.RequestID(ctx),
	)
	return req.IP, true
}

func (h *Handler) unban(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ipRequest](w, r, h.logger)
	if !ok {
		return "", false
	}
	if err := h.store.UnbanIP(ctx, req.IP); err != nil {
		h.internalError(ctx, w, "failed to unban address", err)
		return "", false
	}
	h.logger.InfoContext(ctx, "address unbanned",
		"ip", req.IP,
		"request_id", requestcontext.RequestID(ctx),
	)
	return req.IP, true
}
