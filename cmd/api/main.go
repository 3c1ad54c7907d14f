package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/config"
	"github.com/alaga-care/care-service/internal/docstore"
	apihttp "github.com/alaga-care/care-service/internal/http"
	"github.com/alaga-care/care-service/internal/logger"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/alaga-care/care-service/internal/storage"
	"github.com/alaga-care/care-service/internal/telemetry"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	logger.Init(cfg.Log)

	log.WithField("port", cfg.Server.Port).Info("care-service starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitProvider(ctx, cfg.Telemetry)
	if err != nil {
		log.WithError(err).Warn("telemetry disabled")
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.WithError(err).Warn("custom metrics disabled")
	}

	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("failed to open document store")
	}
	defer store.Close()
	log.WithField("driver", cfg.Store.Driver).Info("✓ Document store ready")

	jwks, err := auth.NewJWKS(cfg.Auth.JWKSURL, 0)
	if err != nil {
		log.WithError(err).Fatal("failed to load identity provider keys")
	}
	defer jwks.Close()
	verifier := auth.NewVerifier(cfg.Auth, jwks)

	perms, err := auth.LoadPermissions(cfg.Permissions)
	if err != nil {
		log.WithError(err).Fatal("failed to load permissions")
	}

	opts := apihttp.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        metrics,
	}

	// Events and photos are optional
	if cfg.RabbitMQ.URL != "" {
		publisher, err := messaging.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, events will not be published")
		} else {
			defer publisher.Close()
			opts.Publisher = publisher
		}
	} else {
		log.Info("rabbitmq.url not set, events will not be published")
	}

	if cfg.MinIO.Endpoint != "" {
		photos, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.WithError(err).Warn("MinIO unavailable, photo uploads disabled")
		} else {
			opts.Photos = photos
		}
	} else {
		log.Info("minio.endpoint not set, photo uploads disabled")
	}

	router := apihttp.SetupRouter(store, verifier, perms, opts)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("✓ HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("telemetry shutdown failed")
	}
	log.Info("care-service stopped")
}
