package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/dhanvantari/internal/analysis"
)

const maxBodyBytes = 1 << 20

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	analyzer *analysis.Analyzer
	db       HealthChecker
	logger   zerolog.Logger
	source   string
}

// New wires the HTTP layer. db may be nil when the database is disabled;
// source names where the patients were loaded from and is shown on the home page.
func New(analyzer *analysis.Analyzer, db HealthChecker, source string, logger zerolog.Logger) *Server {
	return &Server{
		analyzer: analyzer,
		db:       db,
		logger:   logger,
		source:   source,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(pages)
	router.Use(
		requestID(),
		requestLogger(s.logger),
		recovery(s.logger, s.fail),
		limitBodySize(maxBodyBytes),
		corsPolicy(),
	)

	router.NoRoute(func(c *gin.Context) {
		s.fail(c, httpError{Status: http.StatusNotFound, Message: "page not found"})
	})

	router.GET("/", s.home)
	router.GET("/analysis", s.analysisPage)
	router.POST("/analysis", s.generateAnalysis)
	router.GET("/patients/:id/raw.xlsx", s.downloadRawData)

	api := router.Group("/api")
	api.GET("/patients", s.listPatients)
	api.GET("/patients/:id", s.getPatient)
	api.GET("/patients/:id/metrics", s.getMetrics)
	api.POST("/patients/:id/analysis", s.analyzePatient)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.readyz)

	return router
}

func (s *Server) readyz(c *gin.Context) {
	patients := s.analyzer.Store().Len()
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled", "patients": patients})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"db":       fmt.Sprintf("unhealthy: %v", err),
			"patients": patients,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok", "patients": patients})
}

// HTTPServer applies the listener timeouts. WriteTimeout leaves room for a
// slow completion on POST /analysis.
func HTTPServer(addr string, handler http.Handler, aiTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      aiTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
