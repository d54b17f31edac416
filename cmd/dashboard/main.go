package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"istock.com/client"
	"istock.com/dashboard"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("DASHBOARD_ADDR", ":8080"), "listen address")
	apiURL := flag.String("api", client.BaseURLFromEnv(), "iStock API base URL")
	secure := flag.Bool("secure-cookie", os.Getenv("DASHBOARD_SECURE_COOKIE") == "true", "mark the token cookie Secure")
	flag.Parse()

	logger := client.NewLogger(os.Stdout)
	defer logger.Sync()

	srv, err := dashboard.New(dashboard.Config{
		APIBaseURL:   *apiURL,
		Timeout:      client.DefaultTimeout,
		Logger:       logger,
		Version:      envOr("APP_VERSION", "1.0.0"),
		SecureCookie: *secure,
	})
	if err != nil {
		logger.Fatal("build dashboard", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("dashboard shutdown", zap.Error(err))
		}
	}()

	logger.Info("dashboard listening", zap.String("addr", *addr), zap.String("api", *apiURL))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("dashboard stopped", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
