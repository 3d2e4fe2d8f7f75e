package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeronDaniel/E-commerce-project/internal/app"
	"github.com/MeronDaniel/E-commerce-project/internal/config"
	"github.com/MeronDaniel/E-commerce-project/pkg/logger"
)

const demoUserID = "1"

func main() {
	cfg, err := config.LoadSandbox()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("storefront-sandbox", cfg.LogLevel)
	log.Info("starting storefront sandbox",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
	)

	application, err := app.NewSandbox(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Environment == "development" {
		token, err := application.DevToken(demoUserID)
		if err != nil {
			log.Error("failed to issue dev token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("dev token issued; export it as STOREFRONT_ACCESS_TOKEN",
			slog.String("user_id", demoUserID),
			slog.String("token", token),
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storefront sandbox stopped")
}
