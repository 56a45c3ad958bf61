package apiserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/apiserver/handler"
	"github.com/gloamlab/gloam/internal/apiserver/middleware"
	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/internal/common/errorx"
	"github.com/gloamlab/gloam/internal/engine/coordinator"
	"github.com/gloamlab/gloam/internal/engine/lifecycle"
	"github.com/gloamlab/gloam/internal/world"
	"github.com/gloamlab/gloam/pkg/metrics"
)

// Server assembles the HTTP API: engine routes, optional world telemetry
// routes, health and metrics. Mutating routes sit behind the API key
// middleware; reads are open.
type Server struct {
	logger  *zap.Logger
	cfg     *config.GloamdConfig
	router  *gin.Engine
	httpSrv *http.Server
}

// NewServer creates the API server and registers all routes. A nil
// worldSvc leaves the world routes unregistered.
func NewServer(logger *zap.Logger, cfg *config.GloamdConfig, coord *coordinator.Coordinator, lc *lifecycle.Manager, worldSvc *world.Service, m *metrics.Metrics) *Server {
	s := &Server{
		logger: logger.Named("apiserver"),
		cfg:    cfg,
	}

	errs := errorx.NewErrorHandler(logger)

	router := gin.New()
	router.Use(s.loggerMiddleware())
	router.Use(errs.RecoveryMiddleware())
	router.Use(otelgin.Middleware(cnst.AppName))
	router.Use(m.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	capabilities := []string{"sessions", "turn-coordination", "lifecycle-sweep"}
	if worldSvc != nil {
		capabilities = append(capabilities, "world-telemetry")
	}
	if cfg.Metrics.Enabled {
		capabilities = append(capabilities, "metrics")
	}
	info := handler.NewServiceInfoHandler(capabilities)

	sessions := handler.NewSessionHandler(logger, coord, lc)
	limiter := middleware.NewRateLimiter(cfg.API.RateLimit)
	authed := middleware.APIKeyAuth(logger, &cfg.API, limiter)

	api := router.Group("/api")
	api.GET("/info", info.HandleServiceInfo)
	api.POST("/sessions", authed, sessions.HandleCreateSession)
	api.GET("/sessions/:id", sessions.HandleGetSession)
	api.POST("/sessions/:id/moves", authed, sessions.HandleSubmitMove)
	api.GET("/sessions/:id/moves", sessions.HandleListMoves)
	api.POST("/admin/sweep", authed, sessions.HandleSweep)

	if worldSvc != nil {
		w := handler.NewWorldHandler(logger, worldSvc)
		api.POST("/log_death", authed, w.HandleLogDeath)
		api.GET("/get_dread_level", w.HandleGetDreadLevel)
		api.GET("/get_elevated_dread_areas", w.HandleGetElevatedDreadAreas)
		api.POST("/leave_note", authed, w.HandleLeaveNote)
		api.GET("/get_player_notes", w.HandleGetPlayerNotes)
	}

	s.router = router
	return s
}

// Router returns the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving in the background
func (s *Server) Start() {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}
	go func() {
		s.logger.Info("api server listening", zap.Int("port", s.cfg.Port))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("failed to start server", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	s.logger.Info("shutting down api server")
	return s.httpSrv.Shutdown(ctx)
}

// loggerMiddleware logs incoming requests and outgoing responses
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.logger.Debug("incoming request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("remote_addr", c.Request.RemoteAddr),
		)

		c.Next()

		s.logger.Debug("outgoing response",
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
		)
	}
}
