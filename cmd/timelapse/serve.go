package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zanzhit/timelapse_recorder/internal/config"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	authhandler "github.com/zanzhit/timelapse_recorder/internal/http-server/handlers/auth"
	capturehandler "github.com/zanzhit/timelapse_recorder/internal/http-server/handlers/capture"
	deviceshandler "github.com/zanzhit/timelapse_recorder/internal/http-server/handlers/devices"
	metricshandler "github.com/zanzhit/timelapse_recorder/internal/http-server/handlers/metrics"
	schedulehandler "github.com/zanzhit/timelapse_recorder/internal/http-server/handlers/schedule"
	sessionshandler "github.com/zanzhit/timelapse_recorder/internal/http-server/handlers/sessions"
	settingshandler "github.com/zanzhit/timelapse_recorder/internal/http-server/handlers/settings"
	authmiddleware "github.com/zanzhit/timelapse_recorder/internal/http-server/middleware/auth"
	"github.com/zanzhit/timelapse_recorder/internal/http-server/middleware/logger"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
	"github.com/zanzhit/timelapse_recorder/internal/services/assembler"
	authservice "github.com/zanzhit/timelapse_recorder/internal/services/auth"
	captureservice "github.com/zanzhit/timelapse_recorder/internal/services/capture"
	deviceservice "github.com/zanzhit/timelapse_recorder/internal/services/devices"
	"github.com/zanzhit/timelapse_recorder/internal/services/fetcher"
	metricsservice "github.com/zanzhit/timelapse_recorder/internal/services/metrics"
	publisherservice "github.com/zanzhit/timelapse_recorder/internal/services/publisher"
	"github.com/zanzhit/timelapse_recorder/internal/services/publisher/opencast"
	schedulerservice "github.com/zanzhit/timelapse_recorder/internal/services/scheduler"
	settingsservice "github.com/zanzhit/timelapse_recorder/internal/services/settings"
	fsstorage "github.com/zanzhit/timelapse_recorder/internal/storage/fs"
	"github.com/zanzhit/timelapse_recorder/internal/storage/postgres"
	authstorage "github.com/zanzhit/timelapse_recorder/internal/storage/postgres/auth"
	devicestorage "github.com/zanzhit/timelapse_recorder/internal/storage/postgres/devices"
	sessionstorage "github.com/zanzhit/timelapse_recorder/internal/storage/postgres/sessions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture controller, scheduler and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustLoadPath(config.PathOrEnv(configPath))

		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := setupLogger(cfg.Env)

	log.Info("starting application", slog.String("env", cfg.Env), slog.String("address", cfg.HTTPServer.Address))

	db, err := postgres.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer db.Close()

	authStorage := authstorage.New(db)
	deviceStorage := devicestorage.New(db)
	sessionStorage := sessionstorage.New(db)

	authService := authservice.New(log, authStorage, authStorage, cfg.TokenTTL, cfg.Secret)
	if err := authService.CreateInitialAdmin(); err != nil {
		log.Warn("initial admin not created", sl.Err(err))
	}

	registry := deviceservice.New(log, deviceStorage)
	if err := registry.Load(); err != nil {
		return fmt.Errorf("failed to load devices: %w", err)
	}
	if err := registry.LoadFile(cfg.DevicesFile); err != nil {
		return fmt.Errorf("failed to load devices file: %w", err)
	}

	settings := settingsservice.New(log, cfg.Capture.Interval, cfg.Capture.Framerate)
	store := fsstorage.New()

	controller := captureservice.New(
		log,
		fetcher.New(cfg.Capture.FetchTimeout, cfg.Capture.SnapshotPath),
		store,
		assembler.New(log, cfg.Capture.Encoder, cfg.Capture.Resolution),
		sessionStorage,
		settings,
		cfg.SnapshotsPath,
	)

	window, err := scheduleWindow(cfg.Schedule)
	if err != nil {
		return err
	}

	scheduler := schedulerservice.New(log, controller, registry, settings, window, cfg.Schedule.CheckInterval)
	if cfg.Schedule.Engage {
		if err := scheduler.Engage(window); err != nil {
			return fmt.Errorf("failed to engage schedule: %w", err)
		}
	}

	reporter := metricsservice.New(log, controller, store, cfg.Metrics.RefreshInterval)

	var videoPublisher publisherservice.VideoPublisher
	if cfg.OpencastConfigPath != "" {
		videoPublisher = opencast.MustLoad(cfg.OpencastConfigPath)
	} else {
		log.Info("opencast publisher disabled")
	}
	publisher := publisherservice.New(log, sessionStorage, videoPublisher)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(logger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	authHandler := authhandler.New(log, authService)
	devicesHandler := deviceshandler.New(log, registry, cfg.Capture.FetchTimeout)
	captureHandler := capturehandler.New(log, scheduler, controller)
	settingsHandler := settingshandler.New(log, settings)
	scheduleHandler := schedulehandler.New(log, scheduler)
	sessionsHandler := sessionshandler.New(log, sessionStorage, publisher)
	metricsHandler := metricshandler.New(log, reporter)

	router.Post("/auth/login", authHandler.Login)

	router.Group(func(r chi.Router) {
		r.Use(authmiddleware.JWTAuth(cfg.Secret))

		r.With(authmiddleware.AdminRequired).Post("/auth/register", authHandler.Register)

		r.Get("/devices", devicesHandler.List)
		r.Post("/devices", devicesHandler.Add)
		r.Put("/devices/{id}/selection", devicesHandler.Select)
		r.Get("/devices/availability", devicesHandler.Availability)

		r.Post("/capture/start", captureHandler.Start)
		r.Post("/capture/stop", captureHandler.Stop)
		r.Get("/capture/status", captureHandler.Status)

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)

		r.Get("/schedule", scheduleHandler.Status)
		r.Post("/schedule/toggle", scheduleHandler.Toggle)

		r.Get("/sessions", sessionsHandler.List)
		r.Post("/sessions/{id}/publish", sessionsHandler.Publish)

		r.Get("/metrics", metricsHandler.Latest)
		r.Get("/ws/metrics", metricsHandler.Stream)
	})

	// No write timeout: stopping a capture blocks until assembly ends and
	// the metrics stream is long-lived.
	srv := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout,
		ReadTimeout:       cfg.HTTPServer.Timeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server started", slog.String("address", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return reporter.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown server", sl.Err(err))
		}

		// The active session is assembled before exit.
		scheduler.Disengage(context.Background())
		if err := controller.Close(context.Background()); err != nil {
			log.Error("capture stopped with errors", sl.Err(err))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("application stopped")

	return nil
}

func scheduleWindow(cfg config.Schedule) (models.ScheduleWindow, error) {
	start, err := models.ParseTimeOfDay(cfg.Start)
	if err != nil {
		return models.ScheduleWindow{}, fmt.Errorf("invalid schedule start: %w", err)
	}

	end, err := models.ParseTimeOfDay(cfg.End)
	if err != nil {
		return models.ScheduleWindow{}, fmt.Errorf("invalid schedule end: %w", err)
	}

	return models.ScheduleWindow{Start: start, End: end}, nil
}
