package ui

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"biasclean/adapters/excel"
	"biasclean/app"
	"biasclean/domain/fairness"
	"biasclean/internal"
	"biasclean/internal/config"
	"biasclean/ui/middleware"
)

// Server exposes the mitigation service over HTTP
type Server struct {
	router   *gin.Engine
	service  *app.MitigationService
	gatherer prometheus.Gatherer
	cfg      *config.Config
	reader   excel.ReaderConfig
	logger   *internal.Logger
}

// NewServer wires routes and middleware. gatherer backs /metrics.
func NewServer(cfg *config.Config, service *app.MitigationService, gatherer prometheus.Gatherer, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	s := &Server{
		router:   gin.New(),
		service:  service,
		gatherer: gatherer,
		cfg:      cfg,
		reader:   excel.DefaultReaderConfig(),
		logger:   logger.With("Server"),
	}
	s.setupMiddleware(logger)
	s.setupRoutes()
	return s
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware(logger *internal.Logger) {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(logger))
	s.router.Use(middleware.BodyLimit(s.cfg.Server.MaxUploadBytes))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api/v1")
	api.GET("/domains", s.handleDomains)
	api.POST("/score", s.handleScore)
	api.POST("/mitigate", s.handleMitigate)
	api.GET("/reports", s.handleListReports)
	api.GET("/reports/:id", s.handleGetReport)
	api.GET("/reports/:id/html", s.handleReportDocument("html"))
	api.GET("/reports/:id/markdown", s.handleReportDocument("markdown"))
}

// Handler returns the router for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting bias mitigation API on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "domains": len(fairness.Domains())})
}
