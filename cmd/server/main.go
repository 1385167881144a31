package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"duotaire-backend/internal/config"
	"duotaire-backend/internal/console"
	"duotaire-backend/internal/logger"
	"duotaire-backend/internal/server"
)

func main() {
	cfg := config.Load()
	log := logger.Get()
	defer logger.Sync()

	srv := server.New(cfg)
	srv.Start()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}

	go func() {
		console.PrintBanner(cfg.Port)
		log.Info("server listening",
			zap.Int("port", cfg.Port),
			zap.Duration("zap_window", cfg.ZapWindow))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
}
