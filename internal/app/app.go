package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/redis/go-redis/v9"

	"campaignclean/internal/config"
	"campaignclean/internal/dataprocessing"
	apierrors "campaignclean/internal/errors"
	"campaignclean/internal/files"
	"campaignclean/internal/infrastructure"
	customMiddleware "campaignclean/internal/middleware"
	"campaignclean/internal/operations"
	"campaignclean/internal/services"
	handlers "campaignclean/internal/transport/http"
	"campaignclean/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Cleaning      *services.CleaningService
	Health        *services.HealthService

	errorHandler *apierrors.ErrorHandler
	uploads      files.Store
	outputs      files.Store
	summaries    operations.SummaryStore
	closers      []io.Closer

	stopCleanup context.CancelFunc
	cleanupDone chan struct{}
	stopOnce    sync.Once
}

// NewApplication loads the configuration and creates the application.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := New(ctx, cfg, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	app.closers = append(app.closers, logCloser)
	return app, nil
}

// New creates the application from an already loaded configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("version", contracts.GetFullVersionString()),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("summaries", cfg.Summary.Backend))

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	if err := app.initializeServices(ctx); err != nil {
		app.closeAll()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		app.closeAll()
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	app.createServer()
	return app, nil
}

// initializeServices opens the stores and builds the services
func (a *Application) initializeServices(ctx context.Context) error {
	uploads, outputs, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	a.uploads, a.outputs = uploads, outputs

	summaries, err := a.openSummaryStore(ctx)
	if err != nil {
		return err
	}
	a.summaries = summaries

	metrics, err := infrastructure.NewCleaningMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create cleaning metrics: %w", err)
	}

	processor := dataprocessing.NewProcessor(
		dataprocessing.NewColumnMatcher(a.Config.Batch.MatchMode, a.Config.Batch.Marker),
		a.Logger,
	)
	dispatcher := operations.NewDispatcher(processor, outputs,
		operations.WithWorkers(a.Config.Batch.Workers),
		operations.WithRecorder(metrics),
		operations.WithLogger(a.Logger),
	)

	a.Cleaning = services.NewCleaningService(uploads, outputs, summaries, dispatcher, a.Logger,
		services.WithMaxFiles(a.Config.Upload.MaxFiles),
		services.WithUploadRecorder(metrics),
	)

	a.Health = services.NewHealthService(map[string]services.Checker{
		"uploads":   services.StoreChecker(uploads),
		"outputs":   services.StoreChecker(outputs),
		"summaries": summaries,
	}, a.Logger)

	return nil
}

// openStores creates the uploads and outputs namespaces on the configured backend.
func (a *Application) openStores(ctx context.Context) (files.Store, files.Store, error) {
	sc := a.Config.Storage

	if sc.Backend == "s3" {
		open := func(namespace string) (files.Store, error) {
			return files.NewS3Store(ctx, files.S3Config{
				Bucket:          sc.S3.Bucket,
				Region:          sc.S3.Region,
				AccessKeyID:     sc.S3.AccessKeyID,
				SecretAccessKey: sc.S3.SecretAccessKey,
				Endpoint:        sc.S3.Endpoint,
				ForcePathStyle:  sc.S3.ForcePathStyle,
				Prefix:          path.Join(sc.S3.Prefix, namespace),
			}, a.Logger)
		}
		uploads, err := open("uploads")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open uploads bucket: %w", err)
		}
		outputs, err := open("outputs")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open outputs bucket: %w", err)
		}
		return uploads, outputs, nil
	}

	uploads, err := files.NewLocalStore(sc.UploadsDir, a.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open uploads directory: %w", err)
	}
	a.closers = append(a.closers, uploads)

	outputs, err := files.NewLocalStore(sc.OutputsDir, a.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open outputs directory: %w", err)
	}
	a.closers = append(a.closers, outputs)

	a.Logger.InfoContext(ctx, "Local storage ready",
		slog.String("uploads", uploads.Root()),
		slog.String("outputs", outputs.Root()))
	return uploads, outputs, nil
}

// openSummaryStore creates the configured batch summary store.
func (a *Application) openSummaryStore(ctx context.Context) (operations.SummaryStore, error) {
	sc := a.Config.Summary
	if sc.Backend != "redis" {
		return operations.NewMemorySummaryStore(sc.TTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     sc.Redis.Addr,
		Password: sc.Redis.Password,
		DB:       sc.Redis.DB,
	})
	a.closers = append(a.closers, client)

	store := operations.NewRedisSummaryStore(client, sc.Redis.KeyPrefix, sc.TTL, a.Logger)
	if err := store.Ping(ctx); err != nil {
		// Readiness reports the outage; the server still starts.
		a.Logger.WarnContext(ctx, "Redis not reachable at startup",
			slog.String("addr", sc.Redis.Addr),
			slog.String("error", err.Error()))
	}
	return store, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// Order: RequestID → RealIP → OTel → error/logging → headers → CORS → rate limit → body limit
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)
	r.Use(apierrors.NewErrorMiddleware(a.errorHandler, a.Logger).Handler)

	secure := customMiddleware.DefaultSecureHeaders()
	secure.DevMode = a.Config.Telemetry.Environment == "development"
	r.Use(secure.Handler)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}

	if rl := a.Config.Security.RateLimit; rl.Enabled && rl.RPS > 0 {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.errorHandler, a.Logger).Handler)
	}

	r.Use(customMiddleware.BodyLimit(a.Config.Upload.MaxBytes, a.errorHandler))
	r.Use(customMiddleware.Compress(5, "application/json", "application/problem+json", "text/csv"))

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)
	cleaningHandler := handlers.NewCleaningHandler(a.Cleaning, validation, a.errorHandler, a.Config.Server.RequestTimeout, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		cleaningHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
			healthHandler.RegisterRoutes(r)
		})
	})

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.errorHandler))

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Start launches the periodic cleanup and the HTTP server. Server failures
// are reported on the returned channel.
func (a *Application) Start(ctx context.Context) <-chan error {
	a.startCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// startCleanup removes expired uploads and outputs every CleanupInterval.
func (a *Application) startCleanup(ctx context.Context) {
	interval := a.Config.Storage.CleanupInterval
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopCleanup = cancel
	a.cleanupDone = make(chan struct{})

	go func() {
		defer close(a.cleanupDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.Cleaning.Cleanup(ctx, a.Config.Storage.Retention); err != nil {
					a.Logger.ErrorContext(ctx, "Periodic cleanup failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop gracefully stops the application. It is safe to call more than once.
func (a *Application) Stop(ctx context.Context) error {
	var errs []error

	a.stopOnce.Do(func() {
		a.Logger.InfoContext(ctx, "Shutting down application")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}

		if a.stopCleanup != nil {
			a.stopCleanup()
			<-a.cleanupDone
		}

		if a.Config.Storage.PurgeOnShutdown {
			removed, err := a.Cleaning.Cleanup(shutdownCtx, 0)
			if err != nil {
				errs = append(errs, fmt.Errorf("purge stored files: %w", err))
			}
			a.Logger.InfoContext(ctx, "Stored files purged", slog.Int("removed", removed))
		}

		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}

		a.Logger.InfoContext(ctx, "Application shutdown complete")
		errs = append(errs, a.closeAll())
	})

	return errors.Join(errs...)
}

// closeAll releases stores, clients and the log file in reverse order.
func (a *Application) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := a.Start(ctx)

	var serverErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received interrupt signal")
	case err, ok := <-errCh:
		if ok {
			serverErr = fmt.Errorf("server error: %w", err)
			a.Logger.Error("HTTP server failed", slog.String("error", err.Error()))
		}
	}

	return errors.Join(serverErr, a.Stop(context.Background()))
}
