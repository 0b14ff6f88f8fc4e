package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hjyouh/books/backend/internal/auth"
	"github.com/hjyouh/books/backend/internal/catalog"
	"github.com/hjyouh/books/backend/internal/config"
	"github.com/hjyouh/books/backend/internal/database"
	"github.com/hjyouh/books/backend/internal/ids"
	"github.com/hjyouh/books/backend/internal/logging"
	"github.com/hjyouh/books/backend/internal/members"
	"github.com/hjyouh/books/backend/internal/reviews"
	"github.com/hjyouh/books/backend/internal/server"
	"github.com/hjyouh/books/backend/internal/slides"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	tokenIssuer   = "books-auth"
	tokenAudience = "books-api"
	sweepTimeout  = time.Minute
)

type application struct {
	config     config.AppConfig
	logger     *zap.Logger
	slides     *slides.Service
	catalog    *catalog.Service
	members    *members.Service
	reviews    *reviews.Service
	dispatcher *server.SlideEventDispatcher
}

func newApplication() (*application, func(), error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFile)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	cleanup := func() {
		_ = sqlDB.Close()
		_ = logger.Sync()
	}

	idProvider := ids.NewUUIDProvider()
	dispatcher := server.NewSlideEventDispatcher()

	slideStore, err := slides.NewGormStore(db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	slideService, err := slides.NewService(slides.ServiceConfig{
		Store:      slideStore,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger.Named("slides"),
		Grace:      appConfig.SlideGrace,
		Notifier:   dispatcher,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger.Named("catalog"),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	memberService, err := members.NewService(members.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger.Named("members"),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	reviewService, err := reviews.NewService(reviews.ServiceConfig{
		Database:   db,
		Books:      catalogService,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger.Named("reviews"),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &application{
		config:     appConfig,
		logger:     logger,
		slides:     slideService,
		catalog:    catalogService,
		members:    memberService,
		reviews:    reviewService,
		dispatcher: dispatcher,
	}, cleanup, nil
}

func runServer(ctx context.Context) error {
	app, cleanup, err := newApplication()
	if err != nil {
		return err
	}
	defer cleanup()
	logger := app.logger

	if app.config.AdminEmail != "" {
		if _, err := app.members.EnsureAdmin(ctx, app.config.AdminEmail, app.config.AdminPassword); err != nil {
			return err
		}
	}

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(app.config.SigningSecret),
		Issuer:        tokenIssuer,
		Audience:      tokenAudience,
		TokenTTL:      app.config.TokenTTL,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:   tokenManager,
		Slides:         app.slides,
		Catalog:        app.catalog,
		Members:        app.members,
		Reviews:        app.reviews,
		Dispatcher:     app.dispatcher,
		Logger:         logger,
		AllowedOrigins: app.config.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              app.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", app.config.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runSweep performs one lifecycle pass and waits for the expiry writes.
func runSweep(ctx context.Context) error {
	app, cleanup, err := newApplication()
	if err != nil {
		return err
	}
	defer cleanup()

	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	records, pending, err := app.slides.Refresh(sweepCtx)
	if err != nil {
		return err
	}
	if err := pending.Wait(sweepCtx); err != nil {
		app.logger.Error("slide sweep incomplete",
			zap.Strings("failed_slide_ids", pending.Failed()),
			zap.Error(err))
		return err
	}
	app.logger.Info("slide sweep finished", zap.Int("slides", len(records)))
	return nil
}
