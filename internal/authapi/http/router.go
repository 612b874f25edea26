package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/internal/authapi/store"
	"github.com/paybackfitness/authapi/pkg/httpx"
	"github.com/paybackfitness/authapi/pkg/slogx"

	_ "github.com/paybackfitness/authapi/api/authapi" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	AuthService     *service.AuthService
	ReferralService *service.ReferralService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	auth *service.AuthService,
	referral *service.ReferralService,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:             http.NewServeMux(),
		buildVersion:    buildVersion,
		startTime:       time.Now(),
		store:           st,
		AuthService:     auth,
		ReferralService: referral,
		logger:          logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerReferral()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP applies the router-wide middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Credential and OTP endpoints are brute-forceable, so they all sit
	// behind the strict per-IP limit.
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(
			&SignUpHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	// Signin keys on IP plus the submitted email so one address cannot burn
	// another account's budget from behind a shared NAT.
	r.Mux.Handle("POST /api/auth/signin",
		httpx.Chain(
			&SignInHandler{AuthService: r.AuthService},
			httpx.RateLimitMiddleware(httpx.StrictLimit,
				httpx.CompositeKeyExtractor("|", httpx.IPKeyExtractor, httpx.JSONFieldKeyExtractor("email"))),
		))

	r.Mux.Handle("POST /api/auth/google",
		httpx.Chain(
			&GoogleAuthHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /api/auth/verify-otp",
		httpx.Chain(
			&VerifyOTPHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /api/auth/resend-otp",
		httpx.Chain(
			&ResendOTPHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /api/auth/refresh-token",
		httpx.Chain(
			&RefreshTokenHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		))

	r.Mux.Handle("POST /api/auth/forgot-password",
		httpx.Chain(
			&ForgotPasswordHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /api/auth/verify-forgot-password-otp",
		httpx.Chain(
			&VerifyForgotPasswordOTPHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /api/auth/set-new-password",
		httpx.Chain(
			&SetNewPasswordHandler{AuthService: r.AuthService},
			RequireAuth(r.AuthService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
}

func (r *Router) registerReferral() {
	r.Mux.Handle("POST /api/referral/claim",
		httpx.Chain(
			&ClaimReferralHandler{ReferralService: r.ReferralService},
			RequireAuth(r.AuthService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(
			LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))

	r.Mux.Handle("GET /readyz",
		httpx.Chain(
			ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))
}
