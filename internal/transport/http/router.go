package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/horizons-hq/horizons-api/internal/application/flows"
	"github.com/horizons-hq/horizons-api/internal/application/identity"
	"github.com/horizons-hq/horizons-api/internal/config"
	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/horizons-hq/horizons-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/horizons-hq/horizons-api/internal/infrastructure/jwt"
	redisinfra "github.com/horizons-hq/horizons-api/internal/infrastructure/redis"
	"github.com/horizons-hq/horizons-api/internal/infrastructure/smtp"
	"github.com/horizons-hq/horizons-api/internal/transport/http/handler"
	appmiddleware "github.com/horizons-hq/horizons-api/internal/transport/http/middleware"
	"github.com/horizons-hq/horizons-api/internal/verification"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo *dynamo.AccountRepo
	ProfileRepo *dynamo.ProfileRepo
	SessionRepo *dynamo.SessionRepo
	KV          *redisinfra.Client
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	identitySvc := identity.NewService(deps.AccountRepo, deps.ProfileRepo, deps.SessionRepo, deps.JWTProvider, cfg.RefreshTokenDur)
	mgr := verification.NewManager(deps.KV)
	resetSvc := flows.NewPasswordResetService(mgr, deps.ProfileRepo, identitySvc, deps.Mailer, cfg.PasswordResetTTL)
	inviteSvc := flows.NewInviteService(mgr, deps.ProfileRepo, identitySvc, deps.Mailer, cfg.FrontendURL, cfg.InviteTTL)
	emailChangeSvc := flows.NewEmailChangeService(mgr, deps.ProfileRepo, identitySvc, deps.Mailer, cfg.EmailChangeTTL)
	signLinkSvc := flows.NewSignatureLinkService(mgr, cfg.SignatureLinkTTL)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(identitySvc)
	resetH := handler.NewPasswordResetHandler(resetSvc)
	userH := handler.NewUserHandler(inviteSvc)
	emailH := handler.NewEmailChangeHandler(emailChangeSvc)
	linkH := handler.NewSignatureLinkHandler(signLinkSvc, cfg.FrontendURL)
	profileH := handler.NewProfileHandler(deps.ProfileRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/password-reset/{action}", resetH.Action)
		r.With(sensitiveRL.Limit).Post("/users/complete-invite", userH.CompleteInvite)
		r.With(sensitiveRL.Limit).Get("/links/cra-signature/validate", linkH.Validate)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.RequireActive(deps.ProfileRepo))

			r.Get("/users/me", profileH.Me)
			r.Post("/email-change/request", emailH.Request)
			r.Post("/email-change/confirm", emailH.Confirm)

			// Admins and managers can issue signing links.
			r.With(appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleManager)).
				Post("/links/cra-signature", linkH.Create)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/users", userH.Create)
			})
		})
	})

	return r
}
