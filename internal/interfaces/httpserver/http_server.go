package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	mediaapidocs "mediavault/services/media-api/docs/swagger"
	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/auth"
	"mediavault/services/media-api/internal/interfaces/httpserver/handlers"
	"mediavault/services/media-api/internal/interfaces/httpserver/middlewares"
	v1 "mediavault/services/media-api/internal/interfaces/httpserver/routes/v1"
)

// ReadinessChecks are run by /readyz, keyed by dependency name.
type ReadinessChecks = handlers.ReadinessChecks

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, mediaService *domain.Service, authValidator *auth.Validator, checks ReadinessChecks) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	mediaapidocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.MaxMultipartMemory = 32 << 20
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.TracingMiddleware(cfg.ServiceName),
		middlewares.LoggingMiddleware(log.With().Str("component", "http").Logger()),
		middlewares.MetricsMiddleware(),
	)

	handlerProvider := handlers.NewProvider(cfg, mediaService, authValidator.Ready, checks, log)
	routeProvider := v1.NewRoutes(handlerProvider)
	registerCoreRoutes(engine, handlerProvider.Health)
	routeProvider.Register(engine, authValidator.Middleware())

	return &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}
}

// Handler exposes the engine for tests and embedding.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("media-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, health *handlers.HealthHandler) {
	engine.GET("/", health.Root)
	engine.GET("/healthz", health.Live)
	engine.GET("/readyz", health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
