package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Godfrey-cyber23/final-year-project-2025/config"
	"github.com/Godfrey-cyber23/final-year-project-2025/db"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/handler"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/lockout"
	repo "github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/repository/postgres"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/service"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/mailer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	dbPool, err := db.NewPostgresPool(context.Background(), cfg.DBURL)
	if err != nil {
		logger.Error("failed to set up database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	accountRepo := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(
		cfg.SessionTokenSecret,
		cfg.ResetTokenSecret,
		time.Duration(cfg.SessionExpiryMin)*time.Minute,
		time.Duration(cfg.ResetExpiryMin)*time.Minute,
	)
	evaluator := lockout.NewEvaluator(
		cfg.LoginMaxAttempts,
		time.Duration(cfg.LockoutWindowMin)*time.Minute,
		time.Duration(cfg.LockoutDurationMin)*time.Minute,
	)
	resetMailer := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	authService := service.NewAuthService(accountRepo, tokenService, evaluator, resetMailer, cfg, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler, handler.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
