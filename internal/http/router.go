package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/trungnamdev/authapi/internal/auth"
	"github.com/trungnamdev/authapi/internal/config"
	"github.com/trungnamdev/authapi/internal/http/handlers"
	"github.com/trungnamdev/authapi/internal/http/middlewares"
	"github.com/trungnamdev/authapi/internal/observability"
	"github.com/trungnamdev/authapi/internal/redisstore"
	"github.com/trungnamdev/authapi/internal/repo/postgres"
)

// NewRouter wires the full HTTP surface. rds may be nil; the auth
// throttle then falls back to its in-process counter.
func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rds *redisstore.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// panics become a generic 500, never a stack trace on the wire
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		handlers.RespondInternal(c)
		c.Abort()
	}))

	r.Use(otelgin.Middleware("authapi"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	}

	r.Use(middlewares.MaxBodyBytes(1 << 20))

	// metrics live on a per-router registry so tests can build routers freely
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// health
	pings := map[string]handlers.Pinger{}

	if pool != nil {
		pings["db"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}

	if rds != nil {
		pings["redis"] = rds.Ping
	}

	health := handlers.NewHealthHandler(pings)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// wire up the credential store, issuer and handlers
	usersRepo := postgres.NewUsersRepo(pool, prom)
	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.Expiry())

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, issuer, prom)
	adminHandler := handlers.NewAdminHandler(usersRepo)
	authMW := middlewares.NewAuthMiddleware(issuer)

	api := r.Group("/api")

	authGroup := api.Group("/auth", middlewares.RequireJSON())

	if cfg.AuthRateLimit > 0 {
		var counters middlewares.CounterStore = middlewares.NewMemory()

		if rds != nil {
			counters = rds
		}

		limiter := middlewares.NewRateLimiter(counters, cfg.AuthRateLimit, cfg.AuthRateWindow)
		authGroup.Use(limiter.Middleware(middlewares.KeyByIP))
	}

	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/register", authHandler.Register)
	authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)

	admin := api.Group("/admin", authMW.RequireAuth(), authMW.RequireClaim("role", "admin"))
	admin.GET("/users", adminHandler.ListUsers)

	return r
}
