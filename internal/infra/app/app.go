package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/config"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/database"
	kafkainfra "github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/kafka"
	redisinfra "github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/redis"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/telemetry"
	postgresrepo "github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository/postgres"
	redisrepo "github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository/redis"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/middleware"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/routes"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/worker/sweep"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
	sweeper  *sweep.Sweeper
}

func New(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Application, error) {
	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	authMetrics, err := telemetry.NewAuthMetrics(telemetry.AuthMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init auth metrics: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	events, producer := NewEventPublisher(cfg, log)
	repos := postgresrepo.NewRepositories(pool)

	services, err := NewServices(cfg, ServiceDeps{
		Accounts: repos.Accounts,
		Sessions: repos.Sessions,
		Cache:    redisrepo.NewSessionCache(redisClient.Client(), cfg.Session.CachePrefix),
		Events:   events,
		Metrics:  authMetrics,
		Logger:   log,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		if producer != nil {
			_ = producer.Close()
		}
		return nil, fmt.Errorf("init services: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		HTTPMetrics: httpMetrics,
		Auth:        services.Auth,
		Accounts:    services.Accounts,
		Sessions:    services.Sessions,
		Database:    pool,
		Cache:       redisClient,
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracer:   tracer,
		sweeper:  sweep.NewSweeper(services.Sessions, cfg.Session.SweepInterval, log.Named("sweeper")),
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting LMS API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		a.sweeper.Start(workerCtx)
	}()
	defer func() {
		stopWorkers()
		workers.Wait()
	}()

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
