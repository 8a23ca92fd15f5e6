package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/app"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/config"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/database"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/logger"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/security"
	postgresrepo "github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository/postgres"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"
)

func main() {
	rollback := flag.Int("rollback", 0, "roll back the given number of migrations instead of applying them")
	seedAdmin := flag.Bool("seed-admin", false, "create the bootstrap administrator after migrating")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if *rollback > 0 {
		if err := database.RollbackMigrations(cfg.Postgres.URL(), *rollback); err != nil {
			lg.Fatal("rollback failed", zap.Int("steps", *rollback), zap.Error(err))
		}
		lg.Info("migrations rolled back", zap.Int("steps", *rollback))
		return
	}

	if err := database.RunMigrations(cfg.Postgres.URL()); err != nil {
		lg.Fatal("migration failed", zap.Error(err))
	}
	lg.Info("migrations applied")

	if !*seedAdmin {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seedBootstrapAdmin(ctx, cfg, lg); err != nil {
		lg.Error("seed admin failed", zap.Error(err))
		os.Exit(1)
	}
}

func seedBootstrapAdmin(ctx context.Context, cfg *config.AppConfig, lg *zap.Logger) error {
	admin := cfg.BootstrapAdmin
	if admin.Username == "" || admin.Password == "" {
		return errors.New("bootstrap_admin.username and bootstrap_admin.password must be set")
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, lg)
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher, err := security.NewPasswordHasher(app.Argon2Config(cfg.Argon2))
	if err != nil {
		return err
	}
	policy := security.NewPasswordPolicy(cfg.Password.MinLength, cfg.Password.MinScore)

	repos := postgresrepo.NewRepositories(pool)
	accounts := usecase.NewAccountService(repos.Accounts, nil, hasher, policy, lg)

	account, err := accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		Username:  admin.Username,
		Password:  admin.Password,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
		UserType:  "admin",
	}, nil)
	if err != nil {
		if errors.Is(err, usecase.ErrConflict) {
			lg.Info("bootstrap admin already exists", zap.String("username", logger.MaskUsername(admin.Username)))
			return nil
		}
		return err
	}

	lg.Info("bootstrap admin created", zap.String("account_id", account.ID))
	return nil
}
