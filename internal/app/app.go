package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"gscconsolidate/internal/config"
	"gscconsolidate/internal/datasource/searchconsole"
	apierrors "gscconsolidate/internal/errors"
	"gscconsolidate/internal/infrastructure"
	customMiddleware "gscconsolidate/internal/middleware"
	"gscconsolidate/internal/services"
	handlers "gscconsolidate/internal/transport/http"
	ws "gscconsolidate/internal/websocket"
	"gscconsolidate/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Services      *ServiceContainer
	ProgressFeed  *ws.Hub

	listener net.Listener
	serveErr chan error
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Consolidation *services.ConsolidationService
	Health        *services.HealthService
	// SearchConsole is nil when no credentials are configured
	SearchConsole *searchconsole.Client
}

// NewApplication loads the configuration, initializes logging and builds the
// application
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

// New wires an application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.Paths.Resolved()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	cfg.Paths = paths

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	a.Services = &ServiceContainer{
		Consolidation: services.NewConsolidationService(
			a.Config.Consolidation,
			a.Metrics,
			a.OTelProviders.Tracer,
			a.Logger,
		),
		Health: services.NewHealthService(contracts.Version, a.Config.Paths.OutputDir, a.Logger),
	}

	a.ProgressFeed = ws.NewHub(a.Config.Server.AllowedOrigins, a.Metrics, a.Logger)
	a.ProgressFeed.Start()
	a.Services.Consolidation.SetPublisher(a.ProgressFeed)

	sc := a.Config.SearchConsole
	if sc.CredentialsFile == "" && sc.Endpoint == "" {
		a.Logger.Info("Search Console source disabled, no credentials configured")
		return nil
	}

	client, err := searchconsole.NewClient(context.Background(), searchconsole.Config{
		CredentialsFile: sc.CredentialsFile,
		RowLimit:        sc.RowLimit,
		SearchType:      sc.SearchType,
		Endpoint:        sc.Endpoint,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Services.SearchConsole = client
	return nil
}

// setupRouter builds the middleware chain and registers all routes.
// Order: RequestID → RealIP → OTel → logging/recovery → security → CORS.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(a.getCORSConfig()))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.Get(config.HealthEndpoint, health.HealthCheck)
	r.Get(config.HealthEndpoint+"/ready", health.ReadinessCheck)
	r.Get("/api/version", health.Version)
	r.Handle(config.ProgressFeedEndpoint, a.ProgressFeed)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Method(http.MethodGet, config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))
	}

	a.setupAPIRoutes(r)
	a.Router = r
}

// setupAPIRoutes registers the consolidation endpoints behind rate limiting
// and the operation timeout
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)

	var source services.TableSource
	if a.Services.SearchConsole != nil {
		source = a.Services.SearchConsole
	}

	consolidation := handlers.NewConsolidationHandler(
		a.Services.Consolidation,
		source,
		validator,
		a.ErrorHandler,
		a.Config.Consolidation.MaxUploadBytes,
		a.Logger,
	)

	r.Group(func(r chi.Router) {
		if a.Config.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.RateLimit.RPS,
				a.Config.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}
		r.Use(chimiddleware.Timeout(a.Config.Server.OperationTimeout))
		r.Mount(config.ConsolidateEndpoint, consolidation.Routes())
	})
}

// getCORSConfig exposes the download headers to browser clients
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		ExposedHeaders: []string{
			"Content-Disposition",
			customMiddleware.RequestIDHeader,
			handlers.HeaderOperationID,
			handlers.HeaderPages,
			handlers.HeaderKeywordsBefore,
			handlers.HeaderKeywordsAfter,
			handlers.HeaderTotalClicks,
			handlers.HeaderTotalImpressions,
			handlers.HeaderMinClicks,
			handlers.HeaderStrategy,
		},
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start binds the listener and serves in the background
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	a.serveErr = make(chan error, 1)

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", ln.Addr().String()),
		slog.String("output_dir", a.Config.Paths.OutputDir),
		slog.Bool("search_console", a.Services.SearchConsole != nil))
	return nil
}

// Addr returns the bound address once started
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked feed connections are not closed by Shutdown
	a.ProgressFeed.Stop()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Run serves until ctx is done, SIGINT or SIGTERM arrives, or the server fails
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Received shutdown signal")
	case serveErr = <-a.serveErr:
	}

	if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return serveErr
}
