package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/config"
	"homecare/portal/internal/handlers"
	"homecare/portal/internal/middleware"
	"homecare/portal/internal/session"
)

type Options struct {
	Gate     middleware.GateConfig
	Sessions *session.Manager
	Recorder audit.Recorder
}

type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
	cfg    *config.AppConfig
}

func NewHTTPServer(cfg *config.AppConfig, log zerolog.Logger, handlerSet handlers.HandlerSet, opts Options) *HTTPServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	// gin's path-correction redirects are answered before any middleware, so
	// they would skip the gate. Unmatched paths fall through to the 404
	// chain, which does run it.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	// The gate sits ahead of CORS so that preflights are rate limited and
	// carry the security headers like every other response.
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log, opts.Recorder),
		middleware.Gate(opts.Gate),
		middleware.CORS(cfg.AllowCORSOrigins, cfg.IsProduction()),
	)
	if opts.Sessions != nil {
		engine.Use(middleware.LoadSession(opts.Sessions))
	}

	handlerSet.Register(engine.Group(""))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &HTTPServer{
		engine: engine,
		server: srv,
		log:    log,
		cfg:    cfg,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) Start() error {
	s.log.Info().
		Str("addr", s.server.Addr).
		Msg("http server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
