package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/internal/auth/gate"
	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/aussiebroadwan/hearth/internal/auth/store"
	"github.com/aussiebroadwan/hearth/pkg/httpx"
	"github.com/aussiebroadwan/hearth/pkg/jwtx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"

	_ "github.com/aussiebroadwan/hearth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate swag init --generalInfo router.go --dir ./,../../../pkg/authsdk --output ../../../api/auth --outputTypes go

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	TokenService *service.TokenService
	UserService  *service.UserService

	// Redis is pinged by /readyz when set.
	Redis Pinger

	// CredentialLimit is the token bucket in front of login, register and
	// refresh. RateKey identifies the caller for it.
	CredentialLimit httpx.RateLimitConfig
	RateKey         httpx.KeyExtractor

	// AdminLimit is the token bucket in front of admin routes, keyed by the
	// subject the gate attached.
	AdminLimit httpx.RateLimitConfig
}

// NewRouter builds a router whose every request passes through g. Routes
// that g does not treat as public need a valid access token.
func NewRouter(
	g *gate.Gate,
	codec *jwtx.Codec,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:             http.NewServeMux(),
		codec:           codec,
		buildVersion:    buildVersion,
		startTime:       time.Now(),
		store:           st,
		logger:          logger,
		CredentialLimit: httpx.CredentialLimit,
		RateKey:         httpx.IPKeyExtractor,
		AdminLimit:      httpx.AdminLimit,
	}

	// Logging first so gate rejections carry the request id
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		g.Middleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Hearth Authentication Service API
//	@version		0.1.0
//	@description	Request authentication and token lifecycle: login, refresh rotation with reuse detection, logout and revocation.
//	@description
//	@description				Access tokens are HS256-signed JWTs presented as Bearer credentials. Refresh tokens are opaque and single use.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/hearth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	tokens := &TokenHandler{TokenService: r.TokenService}
	users := &UserHandler{UserService: r.UserService, TokenService: r.TokenService}

	// POST /login - keyed by IP and username so one account can't be
	// brute forced from many addresses sharing a bucket
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(tokens.HandleLogin),
			httpx.RateLimitMiddleware(r.CredentialLimit,
				httpx.CompositeKeyExtractor(":", r.RateKey, httpx.JSONFieldKeyExtractor("username"))),
		),
	)

	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(users.HandleRegister),
			httpx.RateLimitMiddleware(r.CredentialLimit, r.RateKey),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(tokens.HandleRefresh),
			httpx.RateLimitMiddleware(r.CredentialLimit, r.RateKey),
		),
	)

	// Protected by the gate
	r.Mux.HandleFunc("POST /v1/auth/logout", tokens.HandleLogout)
	r.Mux.HandleFunc("GET /v1/auth/me", tokens.HandleMe)
}

func (r *Router) registerAdmin() {
	users := &UserHandler{UserService: r.UserService, TokenService: r.TokenService}

	r.Mux.Handle("POST /v1/admin/users/{id}/revoke",
		httpx.Chain(http.HandlerFunc(users.HandleRevokeUser),
			httpx.RequireRole(domain.RoleAdmin),
			httpx.RateLimitMiddleware(r.AdminLimit, httpx.SubjectKeyExtractor),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.codec.Ready, r.Redis))
}
