// Package main Exam Subscriptions API
//
// @title           Exam Subscriptions API
// @version         1.0
// @description     API прав доступа к экзаменам: подписки, попытки, газета и оплата
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/exam-subscriptions/internal/app/entitlements"
	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting entitlements", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := entitlements.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("entitlements stopped gracefully")
}
