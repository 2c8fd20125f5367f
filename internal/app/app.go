package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"fnopulse/internal/config"
	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/infrastructure"
	customMiddleware "fnopulse/internal/middleware"
	"fnopulse/internal/services"
	handlers "fnopulse/internal/transport/http"
	"fnopulse/internal/websocket"
	"fnopulse/pkg/contracts"
	"fnopulse/pkg/contracts/events"
)

// AppName is logged at startup.
const AppName = "fnopulse - NSE F&O options dashboard API"

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	DatasetService *services.DatasetService
	HealthService  *services.HealthService
	Hub            *websocket.Hub
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.BusinessMetrics

	errorHandler *apperrors.ErrorHandler
	validator    *customMiddleware.Validator
	stopHub      context.CancelFunc
}

// NewApplication loads configuration and the shared logger, then wires
// the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires every component from cfg. The dataset is not loaded until
// Start, so the server can answer health checks while it loads.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Development),
		validator:     customMiddleware.NewValidator(),
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	source := services.NewSource(a.Config.Data, a.Paths)
	a.DatasetService = services.NewDatasetService(source, a.Config.Data, a.Metrics, a.Logger)

	a.HealthService = services.NewHealthServiceWithBuildInfo(
		contracts.Version,
		contracts.RepoURL,
		contracts.BuildTime,
		contracts.GitCommit,
		config.PathsConfig{
			BaseDir: a.Paths.BaseDir,
			DataDir: a.Paths.DataDir,
			LogsDir: a.Paths.LogsDir,
		},
		a.DatasetService,
		a.Logger,
	)

	a.Hub = websocket.NewHub(a.Metrics, a.Logger)
	a.DatasetService.Subscribe(func(status services.DatasetStatus) {
		a.Hub.Broadcast(events.NewMessage(events.TypeDatasetStatus, status))
	})
}

// setupRouter configures the HTTP router with all routes. Middleware order:
// RequestID, RealIP, OTel, StructuredLogger, Recoverer, SecureHeaders,
// CORS, RateLimiter, then Timeout on the API routes. The event stream sits
// outside /api so Timeout and Compress never wrap a hijacked connection.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.HealthService, a.Logger, a.errorHandler)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.errorHandler,
			).Handler)
		}

		a.setupAPIRoutes(r, metricsHandler)
	})

	// Scrapes skip the request middleware.
	r.Get("/metrics", metricsHandler.Metrics)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, metricsHandler *handlers.MetricsHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.errorHandler))
		r.Use(customMiddleware.Compress(5, "application/json", "application/problem+json", "text/csv"))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Get("/stats", metricsHandler.Stats)

		dataHandler := handlers.NewDataHandler(a.DatasetService, a.validator, a.Logger, a.errorHandler)
		r.Mount("/data", dataHandler.Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start serves HTTP and loads the dataset in the background. A listener
// failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	hubCtx, stopHub := context.WithCancel(ctx)
	a.stopHub = stopHub
	go a.Hub.Run(hubCtx)

	go a.loadDataset(ctx)

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// loadDataset runs the initial load. Failures leave the service in the
// failed state, where POST /api/data/reload can retry.
func (a *Application) loadDataset(ctx context.Context) {
	ctx = infrastructure.EnsureRequestID(ctx)
	if err := a.DatasetService.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		status := a.DatasetService.Status()
		a.Logger.ErrorContext(ctx, "initial dataset load failed",
			slog.String("error", err.Error()),
			slog.String("source", status.Source),
			slog.String("location", status.Location))
	}
}

// performStartupHealthCheck reports configuration that will make the first
// load fail.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	status := a.DatasetService.Status()
	if status.Source != "http" && !config.FileExists(status.Location) {
		return fmt.Errorf("dataset %s not found: %s", status.Source, status.Location)
	}
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.stopHub != nil {
		a.stopHub()
		select {
		case <-a.Hub.Done():
		case <-shutdownCtx.Done():
			errs = append(errs, fmt.Errorf("event hub shutdown: %w", shutdownCtx.Err()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run runs the application until SIGINT or SIGTERM.
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
