package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"golang.org/x/crypto/bcrypt"

	"hatch/internal/credentials"
	"hatch/internal/moderation"
	"hatch/pkg/domain"
	dErrors "hatch/pkg/domain-errors"
	"hatch/pkg/platform/httputil"
	"hatch/pkg/platform/sentinel"
	"hatch/pkg/requestcontext"
)

// handleRegister creates an unverified account and starts delivery of the
// verification email. The response does not wait for the email.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerRequest](w, r, h.logger)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		h.internalError(ctx, w, "failed to hash password", err)
		return
	}

	now := requestcontext.Now(ctx)
	user, err := h.store.CreateUser(ctx, credentials.NewUser{
		Name:         req.Username,
		PasswordHash: string(hash),
		Email:        req.Email,
		JoinedAt:     now,
	})
	if errors.Is(err, sentinel.ErrConflict) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "that username already exists"))
		return
	}
	if err != nil {
		h.internalError(ctx, w, "failed to create user", err)
		return
	}

	token, err := h.store.CreateEmailToken(ctx, user.ID, h.cfg.EmailTokenTTL, now)
	if err != nil {
		h.internalError(ctx, w, "failed to create email token", err)
		return
	}
	link := h.cfg.BaseURL + "/auth/verify?email_token=" + url.QueryEscape(token.Token)
	if err := h.mailer.SendVerification(ctx, user.Name, req.Email, link); err != nil {
		h.logger.ErrorContext(ctx, "failed to start verification email",
			"error", err,
			"user_id", user.ID,
			"request_id", requestID,
		)
	}

	h.metrics.IncrementUsersRegistered()
	h.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleLogin returns the user's live token, issuing one if none is live.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.store.UserByName(ctx, req.Username)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return
	}
	if err != nil {
		h.internalError(ctx, w, "failed to load user", err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "wrong password"))
		return
	}

	token, err := h.store.IssueToken(ctx, user.ID, h.cfg.AuthTokenTTL, requestcontext.Now(ctx))
	if err != nil {
		h.internalError(ctx, w, "failed to issue token", err)
		return
	}
	if err := h.store.RecordLoginIP(ctx, user.ID, requestcontext.ClientIP(ctx)); err != nil {
		h.logger.WarnContext(ctx, "failed to record login address",
			"error", err,
			"user_id", user.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{Token: token.Token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(ctx, w)
	if !ok {
		return
	}
	if err := h.store.DeleteToken(ctx, p.RawToken); err != nil {
		h.internalError(ctx, w, "failed to delete token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleVerify consumes an email token. The token is removed whether or not
// it is still live; only a live one marks the account verified.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := r.URL.Query().Get("email_token")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email_token is required"))
		return
	}

	token, err := h.store.TakeEmailToken(ctx, raw)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown verification token"))
		return
	}
	if err != nil {
		h.internalError(ctx, w, "failed to read email token", err)
		return
	}

	if token.Expired(requestcontext.Now(ctx)) {
		h.logger.InfoContext(ctx, "expired verification token presented",
			"user_id", token.UserID,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else if err := h.store.SetVerified(ctx, token.UserID, true); err != nil {
		h.internalError(ctx, w, "failed to verify user", err)
		return
	}

	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusSeeOther)
}

// handleMe serves both the verified and unverified variants of /auth/me.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(ctx, w)
	if !ok {
		return
	}
	name, err := h.store.ResolveUsername(ctx, p.UserID)
	if err != nil {
		h.internalError(ctx, w, "failed to resolve username", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meResponse{
		ID:       int64(p.UserID),
		Name:     name,
		Verified: p.Verified,
	})
}

// handleDeleteAccount logs the caller out and schedules the account purge
// after the deletion grace period.
func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(ctx, w)
	if !ok {
		return
	}

	purge := moderation.AuditEvent{
		Culprit:     p.UserID,
		Category:    moderation.AuditUser,
		Description: "Account deleted",
		Action:      moderation.ActionAccountDeletion,
	}
	if err := h.publisher.ScheduleAudit(ctx, purge, h.cfg.AccountDeletionGrace); err != nil {
		h.internalError(ctx, w, "failed to schedule account deletion", err)
		return
	}
	if err := h.store.DeleteToken(ctx, p.RawToken); err != nil {
		h.logger.WarnContext(ctx, "failed to delete token",
			"error", err,
			"user_id", p.UserID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	h.audit(ctx, moderation.AuditEvent{
		Culprit:     p.UserID,
		Category:    moderation.AuditUser,
		Description: "Requested account deletion",
	})

	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

// principal returns the caller established by the route's guards.
func (h *Handler) principal(ctx context.Context, w http.ResponseWriter) (domain.Principal, bool) {
	p, ok := requestcontext.Principal(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "principal missing from context despite guard",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return domain.Principal{}, false
	}
	return p, true
}

// audit publishes ev. A failed publish is logged and never fails the request.
func (h *Handler) audit(ctx context.Context, ev moderation.AuditEvent) {
	if err := h.publisher.Audit(ctx, ev); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish audit event",
			"error", err,
			"user_id", ev.Culprit,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (h *Handler) internalError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, msg))
}
