package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/app"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/config"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/logger"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/telemetry"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	if err := telemetry.InitSentry(cfg.Sentry.DSN, cfg.App.Env, version); err != nil {
		lg.Warn("sentry disabled", zap.Error(err))
	}
	defer telemetry.FlushSentry()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Error("failed to init app", zap.Error(err))
		telemetry.FlushSentry()
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		lg.Error("application stopped", zap.Error(err))
		telemetry.FlushSentry()
		os.Exit(1)
	}
}
