package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/bomanihosts/backend/internal/api/handlers"
	"github.com/bomanihosts/backend/internal/api/middleware"
	"github.com/bomanihosts/backend/internal/api/problem"
	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/config"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/bomanihosts/backend/internal/ratelimit"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Config   config.Config
	Logger   zerolog.Logger
	Pool     *pgxpool.Pool
	Contacts handlers.ContactService
	Accounts handlers.AccountService
	Tokens   *auth.JWTManager
	Limiter  ratelimit.Limiter
	// RedisProbe is set only when the rate limiter is backed by Redis.
	RedisProbe handlers.Pinger

	Version   string
	GitCommit string
	BuildDate string
}

// NewRouter wires every route and the global middleware chain.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	env := cfg.Environment

	contactHandler := handlers.NewContactHandler(deps.Contacts, env)
	accountsHandler := handlers.NewAccountsHandler(deps.Accounts, env)
	tokensHandler := handlers.NewTokensHandler(deps.Accounts, deps.Tokens, env)
	healthChecker := handlers.NewHealthChecker(deps.Pool, deps.RedisProbe, deps.Version, deps.GitCommit)

	limiter := middleware.NewRateLimiter(deps.Limiter, cfg.RateLimit.TrustedProxyCIDRs, env)
	contactLimit := limiter.Limit(middleware.TierContact, ratelimit.PerHour(cfg.RateLimit.ContactPerHour))
	publicLimit := limiter.Limit(middleware.TierPublic, ratelimit.PerMinute(cfg.RateLimit.PublicPerMinute))
	requireAuth := middleware.RequireAuth(deps.Tokens, env)
	// identify lets a signed-in caller spend their own budget on public routes.
	identify := middleware.OptionalAuth(deps.Tokens)

	mux := http.NewServeMux()

	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(deps.Pool))
	mux.Handle("GET /health", healthChecker.Health())
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate))

	route(mux, env, "/api/contact", map[string]http.Handler{
		http.MethodPost: identify(contactLimit(http.HandlerFunc(contactHandler.Create))),
	})
	route(mux, env, "/api/auth/register", map[string]http.Handler{
		http.MethodPost: identify(publicLimit(http.HandlerFunc(accountsHandler.Register))),
	})
	route(mux, env, "/api/auth/login", map[string]http.Handler{
		http.MethodPost: identify(publicLimit(http.HandlerFunc(tokensHandler.Login))),
	})
	route(mux, env, "/api/auth/token/refresh", map[string]http.Handler{
		http.MethodPost: identify(publicLimit(http.HandlerFunc(tokensHandler.Refresh))),
	})
	route(mux, env, "/api/auth/me", map[string]http.Handler{
		http.MethodGet: requireAuth(publicLimit(http.HandlerFunc(accountsHandler.Me))),
	})

	mux.Handle("/", notFound(env))

	// Tracing and metrics sit directly on the mux so both see the matched pattern.
	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.Tracing(handler)
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize, env)(handler)
	handler = middleware.CORS(cfg.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(env == config.EnvProduction)(handler)
	handler = middleware.Recovery(env)(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

// route registers path both with and without the trailing slash.
func route(mux *http.ServeMux, env, path string, byMethod map[string]http.Handler) {
	h := methodMux(env, byMethod)
	mux.Handle(path, h)
	mux.Handle(path+"/{$}", h)
}

func methodMux(env string, handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		problem.Write(w, r, http.StatusMethodNotAllowed, problem.TypeMethod, "Method not allowed", nil, env,
			problem.WithDetail("Method \""+r.Method+"\" not allowed."))
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

func notFound(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", nil, env)
	})
}
