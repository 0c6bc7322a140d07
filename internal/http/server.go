package http

import (
	"context"
	"net/http"

	"github.com/agenthost/agenthost-mini/internal/config"
	"github.com/agenthost/agenthost-mini/internal/http/middleware"
	"github.com/agenthost/agenthost-mini/internal/metrics"
	"github.com/agenthost/agenthost-mini/internal/quota"
	"github.com/agenthost/agenthost-mini/internal/service/research"
	"github.com/agenthost/agenthost-mini/internal/util"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, gate *quota.Gate, agent research.Agent, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	// services
	researchSvc := research.New(gate, agent, cfg.DevMode(), logger.Named("research"))

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLogLevel(logger))

	e.Use(
		echoMid.Recover(),
		echoMid.RequestIDWithConfig(echoMid.RequestIDConfig{Generator: util.NewID}),
		middleware.RequestLogger(logger.Named("http")),
		echoMid.CORSWithConfig(echoMid.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.HeaderAPIKey, middleware.HeaderAdminToken},
		}),
	)
	if cfg.HTTP.BodyLimit != "" {
		e.Use(echoMid.BodyLimit(cfg.HTTP.BodyLimit))
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	health := healthHandler(cfg.Service)
	e.GET("/health", health)
	e.GET("/healthz", health)

	// routes
	keyMW := middleware.APIKeyMiddleware()
	e.POST("/research", researchHandler(researchSvc), keyMW)
	e.GET("/usage", usageHandler(gate), keyMW)

	if cfg.HTTP.AdminToken != "" {
		v1 := e.Group("/v1", middleware.AdminTokenMiddleware(cfg.HTTP.AdminToken))
		v1.POST("/keys", createKeyHandler(gate, logger.Named("keys")))
	}

	return &Server{e: e, log: logger}
}

func healthHandler(service string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": service})
	}
}

// echoLogLevel keeps echo's internal logger in step with the zap level.
func echoLogLevel(l *zap.Logger) log.Lvl {
	switch {
	case l.Core().Enabled(zapcore.DebugLevel):
		return log.DEBUG
	case l.Core().Enabled(zapcore.InfoLevel):
		return log.INFO
	case l.Core().Enabled(zapcore.WarnLevel):
		return log.WARN
	case l.Core().Enabled(zapcore.ErrorLevel):
		return log.ERROR
	default:
		return log.OFF
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
