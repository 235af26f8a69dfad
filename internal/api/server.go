// Package api exposes the reasoning pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/cache"
	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/middleware"
	"github.com/clinical-reasoning-server/internal/service"
)

// Server is the HTTP surface over the pipeline and report store.
type Server struct {
	pipeline *service.Pipeline
	store    domain.ReportStore
	reports  *cache.ReportCache
	logger   *logrus.Logger
	engine   *gin.Engine
	http     *http.Server
}

// NewServer creates the HTTP server.
func NewServer(cfg *domain.ServerConfig, pipeline *service.Pipeline, store domain.ReportStore, reports *cache.ReportCache, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS())
	engine.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	engine.Use(middleware.RequestLogger(logger))

	s := &Server{
		pipeline: pipeline,
		store:    store,
		reports:  reports,
		logger:   logger,
		engine:   engine,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/reports/:caseId", s.handleGetReport)
		v1.GET("/patients/:patientId/reports", s.handleListReports)
	}
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.http.Addr).Info("HTTP server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router, used in tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req service.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	report, err := s.pipeline.Analyze(c.Request.Context(), &req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": verr.Error(),
				"field": verr.Field,
			})
			return
		}
		s.logger.WithError(err).Error("Pipeline run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	if err := s.store.SaveReport(c.Request.Context(), report); err != nil {
		// The report is still returned; persistence failure is logged.
		s.logger.WithError(err).WithField("case_id", report.CaseID).Error("Failed to persist report")
	}
	s.reports.Put(report)

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGetReport(c *gin.Context) {
	caseID := c.Param("caseId")

	if report, ok := s.reports.Get(caseID); ok {
		c.JSON(http.StatusOK, report)
		return
	}

	report, err := s.store.GetReport(c.Request.Context(), caseID)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to load report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return
	}
	s.reports.Put(report)
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListReports(c *gin.Context) {
	patientID := c.Param("patientId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reports, err := s.store.ListReports(c.Request.Context(), patientID, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}
