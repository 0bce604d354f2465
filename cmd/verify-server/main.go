package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/park285/match-verify/internal/builder"
	appcfg "github.com/park285/match-verify/internal/config"
	"github.com/park285/match-verify/internal/obslog"
	"github.com/park285/match-verify/internal/server"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	deps, err := builder.New(cfg, logger)
	if err != nil {
		log.Fatalf("verify init error: %v", err)
	}

	srv := server.New(deps.Service, cfg.MaxUploadBytes, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.HTTPAddr) }()

	logger.Info("verify_server_started",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("notify_mode", cfg.NotifyMode),
		zap.Bool("redis", deps.Redis != nil),
		zap.Bool("postgres", deps.Postgres != nil))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutdown_signal", zap.String("signal", s.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http_serve_failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	deps.Close(ctx)
}
