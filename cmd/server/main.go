package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/megusto0/tgintegration/internal"
	"github.com/megusto0/tgintegration/internal/api"
	"github.com/megusto0/tgintegration/internal/auth"
	"github.com/megusto0/tgintegration/internal/config"
	"github.com/megusto0/tgintegration/internal/media"
	"github.com/megusto0/tgintegration/internal/nightscout"
)

func main() {
	cfg := config.Load()
	logger := internal.NewLogger(cfg.Env)

	if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
		logger.Fatalf("failed to create media root: %v", err)
	}

	client := nightscout.NewClient(cfg.NSURL, cfg.NSToken, cfg.NSAPISecret, logger)
	store := media.NewStore(cfg.MediaRoot, cfg.MediaBaseURL, logger)
	app := api.NewApp(logger, client, store, cfg)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestIDMiddleware())

	r.GET("/healthz", api.Healthz())
	if cfg.WebAppDir != "" {
		if _, err := os.Stat(cfg.WebAppDir); err == nil {
			r.Static("/webapp", cfg.WebAppDir)
		}
	}
	r.Static("/media", cfg.MediaRoot)

	protected := r.Group("/api", auth.Middleware(cfg))
	protected.GET("/treatment", api.GetTreatment(app))
	protected.PUT("/treatment", api.UpdateTreatment(app))
	protected.POST("/upload", api.UploadImage(app))

	srv := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
