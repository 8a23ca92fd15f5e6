package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/config"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/handlers"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/middleware"
)

// ManageUsersPermission is the capability required for account administration besides the admin role.
const ManageUsersPermission = "manage_users"

// AuthService is what the router needs from the auth usecase.
type AuthService interface {
	handlers.LoginService
	middleware.Authenticator
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Auth        AuthService
	Accounts    handlers.AccountAdmin
	Sessions    handlers.SessionAdmin
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	production := deps.Config != nil && deps.Config.IsProduction()
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.HTTPMetrics.Handler())

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))

	if deps.Auth == nil {
		return r
	}

	requireAuth := middleware.RequireAuth(deps.Auth)
	api := r.Group("/api")

	auth := api.Group("/auth")
	handlers.NewAuthHandler(deps.Auth, production).RegisterRoutes(auth, requireAuth)

	if deps.Accounts != nil && deps.Sessions != nil {
		accounts := handlers.NewAccountHandler(deps.Accounts, deps.Sessions)
		auth.GET("/user-types", requireAuth, middleware.RequireAdmin(), accounts.ListUserTypes)

		users := api.Group("/users", requireAuth, middleware.RequireAdmin(), middleware.RequirePermission(ManageUsersPermission))
		accounts.RegisterRoutes(users)
	}

	return r
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
