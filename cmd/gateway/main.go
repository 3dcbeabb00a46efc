// Package main runs the tiered-access gateway: wallet login, tier-gated
// market data, and the social trading API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blade-dance/gateway/internal/app"
	"github.com/blade-dance/gateway/internal/app/httpapi"
	"github.com/blade-dance/gateway/internal/config"
	"github.com/blade-dance/gateway/internal/metrics"
	"github.com/blade-dance/gateway/internal/middleware"
	"github.com/blade-dance/gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("gateway", cfg.LogLevel)

	application, err := app.New(cfg, app.Options{}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}

	m := metrics.New("gateway")

	router := httpapi.NewRouter(application, log, httpapi.RouterConfig{
		Production:          cfg.Production(),
		DefaultRateLimitRPM: 60,
		Metrics:             m.Handler(),
	})
	router.Use(middleware.Logging(log), middleware.Metrics(m))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      middleware.CORS(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
