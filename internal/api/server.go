// Package api exposes the matching engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/domain"
	"github.com/amikxn/TrialMatchAI/internal/review"
	"github.com/amikxn/TrialMatchAI/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config      domain.ServerConfig
	logger      *logrus.Logger
	router      *gin.Engine
	server      *http.Server
	store       domain.RecordStore
	matcher     *service.MatcherService
	extractor   *service.ExtractorService
	interpreter *service.InterpreterService
	reviews     review.Store
}

// Deps bundles the collaborators the server routes requests to.
type Deps struct {
	Store       domain.RecordStore
	Matcher     *service.MatcherService
	Extractor   *service.ExtractorService
	Interpreter *service.InterpreterService
	Reviews     review.Store
}

// NewServer creates a new HTTP server instance
func NewServer(config domain.Config, logger *logrus.Logger, deps Deps) *Server {
	// Set Gin mode based on environment
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	server := &Server{
		config:      config.Server,
		logger:      logger,
		router:      router,
		store:       deps.Store,
		matcher:     deps.Matcher,
		extractor:   deps.Extractor,
		interpreter: deps.Interpreter,
		reviews:     deps.Reviews,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/patients", s.handleListPatients)
		v1.GET("/patients/:id/matches", s.handlePatientMatches)
		v1.GET("/trials", s.handleListTrials)
		v1.GET("/trials/:id/matches", s.handleTrialMatches)
		v1.POST("/trials", s.handleSaveTrial)
		v1.POST("/criteria/extract", s.handleExtract)
		v1.POST("/criteria/interpret", s.handleInterpret)
		v1.POST("/reviews", s.handleSaveReview)
		v1.GET("/reviews", s.handleListReviews)
		v1.GET("/reviews/export", s.handleExportReviews)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

// handleListPatients returns the roster.
func (s *Server) handleListPatients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"patients": s.store.Patients(),
	})
}

// handlePatientMatches evaluates one patient against every loadable trial.
func (s *Server) handlePatientMatches(c *gin.Context) {
	id := c.Param("id")
	patient, ok := s.store.Patient(id)
	if !ok {
		s.abortWithMatchError(c, http.StatusNotFound, domain.NewMatchError(
			domain.ErrPatientUnknown,
			fmt.Sprintf("patient '%s' is not in the roster", id), "", requestID(c)))
		return
	}

	results := s.matcher.MatchPatientAcrossTrials(patient, s.store.Trials())
	c.JSON(http.StatusOK, gin.H{
		"patient_id": patient.PatientID,
		"results":    results,
	})
}

// handleListTrials returns every loadable trial document.
func (s *Server) handleListTrials(c *gin.Context) {
	trials := s.store.Trials()
	summaries := make([]gin.H, 0, len(trials))
	for _, trial := range trials {
		summaries = append(summaries, gin.H{
			"id":       trial.ID,
			"title":    trial.Title,
			"criteria": trial.Criteria,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trials": summaries})
}

// handleTrialMatches evaluates the roster against one trial. By default only
// matched patients are returned; ?all=true includes everyone with reasons.
func (s *Server) handleTrialMatches(c *gin.Context) {
	id := c.Param("id")
	trial, err := s.store.Trial(id)
	if err != nil {
		s.abortStoreError(c, err)
		return
	}

	includeAll := c.Query("all") == "true"
	results := s.matcher.MatchTrialAcrossPatients(trial, s.store.Patients(), !includeAll)
	c.JSON(http.StatusOK, gin.H{
		"trial_id":    trial.ID,
		"trial_title": trial.Title,
		"results":     results,
	})
}

// saveTrialRequest is the POST /trials body.
type saveTrialRequest struct {
	ID       string          `json:"id" binding:"required"`
	Title    string          `json:"title"`
	Criteria domain.Criteria `json:"criteria"`
}

// handleSaveTrial persists a criteria document as a trial definition.
func (s *Server) handleSaveTrial(c *gin.Context) {
	var req saveTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithMatchError(c, http.StatusBadRequest, domain.NewMatchError(
			domain.ErrInvalidInput, "invalid trial document", err.Error(), requestID(c)))
		return
	}

	trial := &domain.Trial{Title: req.Title, Criteria: req.Criteria}
	if err := s.store.SaveTrial(req.ID, trial); err != nil {
		s.abortStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       req.ID,
		"title":    trial.Title,
		"criteria": trial.Criteria,
	})
}

// extractRequest is the POST /criteria/extract and /criteria/interpret body.
type extractRequest struct {
	RawText string `json:"raw_text" binding:"required"`
}

// handleExtract runs the deterministic segmentation strategy.
func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithMatchError(c, http.StatusBadRequest, domain.NewMatchError(
			domain.ErrInvalidInput, "raw_text is required", err.Error(), requestID(c)))
		return
	}

	result := s.extractor.Extract(req.RawText)
	c.JSON(http.StatusOK, gin.H{
		"strategy": domain.STRATEGY_DETERMINISTIC,
		"criteria": result,
	})
}

// handleInterpret runs the interpretation-service strategy. Interpreter
// failures surface as a degraded result, not an error status.
func (s *Server) handleInterpret(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithMatchError(c, http.StatusBadRequest, domain.NewMatchError(
			domain.ErrInvalidInput, "raw_text is required", err.Error(), requestID(c)))
		return
	}

	result := s.interpreter.Extract(c.Request.Context(), req.RawText)
	c.JSON(http.StatusOK, gin.H{
		"strategy": domain.STRATEGY_INTERPRETER,
		"result":   result,
	})
}

// handleSaveReview records a reviewer verdict on a match.
func (s *Server) handleSaveReview(c *gin.Context) {
	var rv review.Review
	if err := c.ShouldBindJSON(&rv); err != nil {
		s.abortWithMatchError(c, http.StatusBadRequest, domain.NewMatchError(
			domain.ErrInvalidInput, "invalid review", err.Error(), requestID(c)))
		return
	}
	if rv.Status == "" {
		rv.Status = domain.REVIEW_PENDING
	}

	if err := s.reviews.Save(c.Request.Context(), &rv); err != nil {
		s.abortWithMatchError(c, http.StatusBadRequest, domain.NewMatchError(
			domain.ErrStoreError, "could not save review", err.Error(), requestID(c)))
		return
	}

	c.JSON(http.StatusCreated, rv)
}

// handleListReviews lists reviews, newest first.
func (s *Server) handleListReviews(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	reviews, err := s.reviews.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.abortWithMatchError(c, http.StatusInternalServerError, domain.NewMatchError(
			domain.ErrStoreError, "could not list reviews", err.Error(), requestID(c)))
		return
	}
	count, err := s.reviews.Count(c.Request.Context())
	if err != nil {
		s.abortWithMatchError(c, http.StatusInternalServerError, domain.NewMatchError(
			domain.ErrStoreError, "could not count reviews", err.Error(), requestID(c)))
		return
	}

	if reviews == nil {
		reviews = []*review.Review{}
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"count":   count,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleExportReviews streams all reviews as JSON or CSV.
func (s *Server) handleExportReviews(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="reviews.csv"`)
		if err := s.reviews.ExportCSV(c.Request.Context(), c.Writer); err != nil {
			s.logger.WithError(err).Error("Review CSV export failed")
		}
	case "json":
		c.Header("Content-Type", "application/json")
		if err := s.reviews.ExportJSON(c.Request.Context(), c.Writer); err != nil {
			s.logger.WithError(err).Error("Review JSON export failed")
		}
	default:
		s.abortWithMatchError(c, http.StatusBadRequest, domain.NewMatchError(
			domain.ErrInvalidInput,
			fmt.Sprintf("unsupported export format '%s'", format), "", requestID(c)))
	}
}

// abortStoreError maps record-store failures onto HTTP statuses.
func (s *Server) abortStoreError(c *gin.Context, err error) {
	var matchErr *domain.MatchError
	if errors.As(err, &matchErr) {
		status := http.StatusInternalServerError
		switch matchErr.Code {
		case domain.ErrTrialUnavailable:
			status = http.StatusNotFound
		case domain.ErrInvalidInput:
			status = http.StatusBadRequest
		}
		matchErr.RequestID = requestID(c)
		s.abortWithMatchError(c, status, matchErr)
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.abortWithMatchError(c, http.StatusBadRequest, domain.NewMatchError(
			domain.ErrInvalidInput, validationErr.Message, validationErr.Field, requestID(c)))
		return
	}

	s.abortWithMatchError(c, http.StatusInternalServerError, domain.NewMatchError(
		domain.ErrInternalServer, "unexpected failure", err.Error(), requestID(c)))
}

func (s *Server) abortWithMatchError(c *gin.Context, status int, matchErr *domain.MatchError) {
	s.logger.WithFields(logrus.Fields{
		"code":       matchErr.Code,
		"request_id": matchErr.RequestID,
		"path":       c.FullPath(),
	}).Warn(matchErr.Message)
	c.AbortWithStatusJSON(status, gin.H{"error": matchErr})
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
