// Package httptransport exposes the account, report, and moderation routes.
// Every route is gated by a guard chain before its handler body runs; handlers
// hand slow work (notifications, email, deferred deletion) to the event bus
// and background task group, never doing it inline.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"hatch/internal/credentials"
	"hatch/internal/guard"
	"hatch/internal/moderation"
	"hatch/internal/platform/metrics"
	"hatch/internal/platform/middleware"
	"hatch/pkg/domain"
	"hatch/pkg/platform/middleware/metadata"
	"hatch/pkg/platform/middleware/requesttime"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Publisher,Mailer

// Store is the credential storage the routes need.
type Store interface {
	CreateUser(ctx context.Context, u credentials.NewUser) (credentials.User, error)
	UserByName(ctx context.Context, name string) (credentials.User, error)
	ResolveUsername(ctx context.Context, id domain.UserID) (string, error)
	IsVerified(ctx context.Context, id domain.UserID) (bool, error)
	SetVerified(ctx context.Context, id domain.UserID, verified bool) error
	RecordLoginIP(ctx context.Context, id domain.UserID, ip string) error

	IssueToken(ctx context.Context, id domain.UserID, ttl time.Duration, now time.Time) (credentials.AuthToken, error)
	LookupToken(ctx context.Context, token string) (credentials.AuthToken, error)
	DeleteToken(ctx context.Context, token string) error
	CreateEmailToken(ctx context.Context, id domain.UserID, ttl time.Duration, now time.Time) (credentials.EmailToken, error)
	TakeEmailToken(ctx context.Context, token string) (credentials.EmailToken, error)

	IsIPBanned(ctx context.Context, ip string) (bool, error)
	BanIP(ctx context.Context, ip string) error
	UnbanIP(ctx context.Context, ip string) error

	ProjectExists(ctx context.Context, id int64) (bool, error)
	CommentExists(ctx context.Context, projectID, commentID int64) (bool, error)
	CreateReport(ctx context.Context, r credentials.Report) error
}

// Publisher puts moderation events on the bus.
type Publisher interface {
	Audit(ctx context.Context, ev moderation.AuditEvent) error
	Report(ctx context.Context, ev moderation.ReportEvent) error
	ScheduleAudit(ctx context.Context, ev moderation.AuditEvent, delay time.Duration) error
}

// Mailer starts verification email delivery without waiting for it.
type Mailer interface {
	SendVerification(ctx context.Context, username, address, link string) error
}

// Config carries the route-level settings.
type Config struct {
	AdminKey    string
	BaseURL     string
	FrontendURL string
	Mods        []string

	AuthTokenTTL         time.Duration
	EmailTokenTTL        time.Duration
	AccountDeletionGrace time.Duration

	BanFailClosed bool
}

type Handler struct {
	store     Store
	publisher Publisher
	mailer    Mailer
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics

	bcryptCost int
	clock      func() time.Time

	enforce   *guard.Enforcer
	token     *guard.Token
	verified  *guard.TokenVerified
	notBanned *guard.NotBanned
	admin     *guard.AdminToken
	moderator *guard.Moderator

	registerLimit *guard.RateLimit
	loginLimit    *guard.RateLimit
	reportLimit   *guard.RateLimit
}

type Option func(*Handler)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(h *Handler) {
		if cost >= bcrypt.MinCost {
			h.bcryptCost = cost
		}
	}
}

// WithClock sets the clock stamped on each request.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.clock = now
		}
	}
}

func New(
	store Store,
	publisher Publisher,
	mailer Mailer,
	limiter guard.Limiter,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Handler {
	h := &Handler{
		store:      store,
		publisher:  publisher,
		mailer:     mailer,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		bcryptCost: bcrypt.DefaultCost,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.enforce = guard.NewEnforcer(logger, m)
	h.token = guard.NewToken(store, logger)
	h.verified = guard.NewTokenVerified(h.token, store, logger)
	h.notBanned = guard.NewNotBanned(store, logger, guard.WithFailClosed(cfg.BanFailClosed))
	h.admin = guard.NewAdminToken(cfg.AdminKey)
	h.moderator = guard.NewModerator(h.verified, store, cfg.Mods, logger)

	h.registerLimit = guard.PerSecond("register", 1, limiter, logger)
	h.loginLimit = guard.PerSecond("login", 10, limiter, logger)
	h.reportLimit = guard.PerSecond("report", 1, limiter, logger)
	return h
}

// Register mounts every route on r.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(h.logger))
	api.Use(metadata.ClientMetadata)
	api.Use(requesttime.MiddlewareWithClock(h.clock))

	api.Get("/", h.handleHealth)

	api.Route("/auth", func(r chi.Router) {
		r.With(h.enforce.Require(h.registerLimit, h.notBanned)).Post("/register", h.handleRegister)
		r.With(h.enforce.Require(h.loginLimit, h.notBanned)).Post("/login", h.handleLogin)
		r.With(h.enforce.Require(h.token)).Get("/logout", h.handleLogout)
		r.Get("/verify", h.handleVerify)
		r.Method(http.MethodGet, "/me", h.enforce.Route(
			guard.When(guard.NewChain(h.verified), h.handleMe),
			guard.When(guard.NewChain(h.token), h.handleMe),
		))
		r.With(h.enforce.Require(h.token)).Get("/delete", h.handleDeleteAccount)
	})

	reporting := h.enforce.Require(h.reportLimit, h.notBanned, h.token)
	api.With(reporting).Post("/projects/{id}/report", h.handleReportProject)
	api.With(reporting).Post("/projects/{id}/comments/{commentID}/report", h.handleReportComment)
	api.With(reporting).Post("/users/{username}/report", h.handleReportUser)

	api.Route("/admin", func(r chi.Router) {
		r.Use(h.enforce.Require(h.admin))
		r.Post("/banned", h.handleIsBanned)
		r.Post("/ip-ban", h.handleAdminBan)
		r.Post("/ip-unban", h.handleAdminUnban)
	})

	api.Route("/mod", func(r chi.Router) {
		r.Use(h.enforce.Require(h.moderator))
		r.Post("/ip-ban", h.handleModBan)
		r.Post("/ip-unban", h.handleModUnban)
	})

	r.Mount("/", api)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
