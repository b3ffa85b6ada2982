package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homekeys/server/config"
	"homekeys/server/internal/api"
	"homekeys/server/internal/calls"
	"homekeys/server/internal/catalog"
	"homekeys/server/internal/conversation"
	"homekeys/server/internal/database"
	"homekeys/server/internal/geocoding"
	"homekeys/server/internal/mapview"
	"homekeys/server/internal/models"
	"homekeys/server/internal/notify"
	"homekeys/server/internal/queue"
	"homekeys/server/internal/scheduler"
	"homekeys/server/internal/selection"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()
	gin.SetMode(gin.ReleaseMode)

	var db *database.Database
	if cfg.Catalog.Source == config.CatalogSourceDatabase {
		db, err = database.NewDatabase(cfg.Database.Path, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()

		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			logger.WithError(err).Fatal("Failed to run database migrations")
		}
	}

	store := loadCatalog(cfg, db, logger)
	logger.WithFields(logrus.Fields{
		"source":     cfg.Catalog.Source,
		"properties": store.Len(),
	}).Info("Catalog loaded")

	region := config.GetRegionByName(cfg.Server.Region)
	viewport := mapview.ViewportFromBound(orb.Bound{
		Min: orb.Point{region.Bounds[1], region.Bounds[0]},
		Max: orb.Point{region.Bounds[3], region.Bounds[2]},
	}, region.ZoomLevel)
	viewport.CenterLat, viewport.CenterLng = region.Center[0], region.Center[1]

	var geocoder *geocoding.Geocoder
	var locator mapview.Locator
	if cfg.Geocoding.Enabled {
		geocoder = geocoding.NewGeocoder(logger, geocoding.Options{
			BaseURL:           cfg.Geocoding.BaseURL,
			UserAgent:         cfg.Geocoding.UserAgent,
			CacheDir:          cfg.Geocoding.CacheDir,
			RequestsPerSecond: cfg.Geocoding.RequestsPerSecond,
			Timeout:           cfg.Geocoding.Timeout,
			RetryMax:          cfg.Geocoding.RetryMax,
		})
		locator = geocoder
	}

	// Call events fan out to the conversation journal, Telegram and the call log
	journal := conversation.NewJournal(cfg.Conversation.JournalLimit)
	events := queue.New[models.CallEvent]("call-events", cfg.Events.BufferSize, logger)
	events.Subscribe(journal.HandleCallEvent)

	telegram := notify.NewService(logger, notify.Options{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		BaseURL:  cfg.Telegram.BaseURL,
	})
	if telegram.Enabled() {
		events.Subscribe(telegram.HandleCallEvent)
	}
	if db != nil {
		events.Subscribe(db.HandleCallEvent)
	}
	events.Start()

	callService := calls.NewService(logger, calls.Options{
		BaseURL:   cfg.Calls.BaseURL,
		APIKey:    cfg.Calls.APIKey,
		PathwayID: cfg.Calls.PathwayID,
		Voice:     cfg.Calls.Voice,
		Timeout:   cfg.Calls.Timeout,
		Rate:      cfg.Calls.Rate,
		Burst:     cfg.Calls.Burst,
	}, events)
	if !callService.Enabled() {
		logger.Warn("BLAND_API_KEY is not set, call requests will be refused")
	}

	sessions := selection.NewManager(store, cfg.Catalog.PageSize, logger)

	jobs := []scheduler.Job{{
		Name:     "prune-sessions",
		Interval: cfg.Sessions.PruneInterval,
		Run: func(ctx context.Context) error {
			journal.Forget(sessions.Prune(cfg.Sessions.IdleTTL)...)
			return nil
		},
	}}
	if geocoder != nil {
		jobs = append(jobs, scheduler.Job{
			Name:         "geocode-backfill",
			Interval:     cfg.Geocoding.BackfillInterval,
			RunAtStartup: true,
			Run: func(ctx context.Context) error {
				_, err := geocoder.Backfill(ctx, store.All())
				return err
			},
		})
	}
	sched := scheduler.NewScheduler(logger, jobs...)
	sched.Start()

	handler := api.NewHandler(api.Dependencies{
		Store:    store,
		Sessions: sessions,
		Journal:  journal,
		Calls:    callService,
		Locator:  locator,
		Region:   viewport,
		PageSize: cfg.Catalog.PageSize,
		Interval: cfg.Conversation.Interval,
	}, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	sched.Stop()
	if err := events.Close(); err != nil {
		logger.WithError(err).Error("Failed to drain call events")
	}
	logger.Info("Server stopped")
}

// loadCatalog picks the configured source. A file that cannot be read
// leaves the server running with an empty catalog.
func loadCatalog(cfg *config.Config, db *database.Database, logger *logrus.Logger) *catalog.Store {
	switch cfg.Catalog.Source {
	case config.CatalogSourceFile:
		store, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.Catalog.Path).Error("Failed to load catalog file, starting empty")
			return catalog.Empty()
		}
		return store
	case config.CatalogSourceDatabase:
		properties, err := db.LoadProperties()
		if err != nil {
			logger.WithError(err).Error("Failed to load properties from database, starting empty")
			return catalog.Empty()
		}
		store, err := catalog.New(properties)
		if err != nil {
			logger.WithError(err).Error("Stored properties are invalid, starting empty")
			return catalog.Empty()
		}
		return store
	default:
		return catalog.LoadOrEmpty(catalog.Bundled(), logger)
	}
}
