package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/exam-subscriptions/internal/app/sender"
	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)
	log.Info("starting notification-sender", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := sender.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize sender", sl.Err(err))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		log.Error("sender stopped with error", sl.Err(err))
		os.Exit(1)
	}
	log.Info("notification-sender stopped gracefully")
}
