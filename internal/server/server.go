// Package server exposes the extraction engine over HTTP and WebSocket:
// batch extraction on POST /v1/extract, streaming sessions on /v1/stream,
// plus health and Prometheus metrics endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"pycall/internal/config"
	"pycall/internal/extract"
	"pycall/internal/logging"
	"pycall/internal/observability"
)

// Server is the HTTP/WebSocket front end.
type Server struct {
	cfg       *config.Config
	log       *observability.Logger
	metrics   *observability.MetricsCollector
	tracer    *observability.TracerProvider
	extractor *extract.Extractor

	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	startTime  time.Time
}

// New assembles a server from the effective configuration.
func New(cfg *config.Config, log *observability.Logger) (*Server, error) {
	metrics, err := observability.NewMetricsCollector(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	tracer, err := observability.NewTracerProvider(cfg.Tracing)
	if err != nil {
		return nil, err
	}

	extractor := extract.New(extract.Options{
		Limits:       cfg.Limits.ParserLimits(),
		Lexer:        cfg.Dialect.LexerOptions(),
		Flatten:      cfg.Extract.Flattening(),
		JSONFallback: cfg.Extract.Fallback(),
		CacheSize:    cfg.Extract.Cache(),
		Logger:       logging.FromObservability(log, "extract"),
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		tracer:    tracer,
		extractor: extractor,
		engine:    engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.Use(s.requestIDMiddleware())
	s.engine.Use(s.tracingMiddleware())

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/extract", s.handleExtract)
		v1.GET("/stream", s.handleStream)
	}
}

// Handler exposes the routing engine, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is canceled, then drains within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening", "addr", s.cfg.Server.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return s.tracer.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
