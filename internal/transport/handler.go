package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/irbid-geoai/geoai-monitor/internal/config"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/repository"
	"github.com/irbid-geoai/geoai-monitor/internal/session"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

const defaultRunLimit = 50

// Dispatcher runs analysis modules.
type Dispatcher interface {
	Dispatch(ctx context.Context, module string, req dispatch.Request) (*models.Result, error)
	Modules() []models.ModuleInfo
	State() dispatch.State
}

// Sessions owns the process-wide session.
type Sessions interface {
	Initialize(ctx context.Context, payload []byte, scope string) (*session.Session, error)
	Current() (*session.Session, error)
}

func NewHandler(d Dispatcher, sessions Sessions, runs repository.RunRepository, metrics prometheus.Gatherer, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(sessions))
	r.GET("/modules", listModules(d))
	r.POST("/modules/:module/run", runModule(d, cfg))
	r.POST("/session", initSession(sessions))
	r.GET("/session", currentSession(sessions))
	r.GET("/runs", listRuns(runs))
	r.GET("/runs/:id", getRun(runs))
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))
	}

	return r
}

func runModule(d Dispatcher, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		module := c.Param("module")
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"module": module,
			"ip":     c.ClientIP(),
		}).Info("Processing module request")

		// The body is optional; only zonal statistics reads it
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		result, err := d.Dispatch(ctx, module, dispatch.Request{
			AOI:       req.AOI,
			Reducer:   req.Reducer,
			Scale:     req.Scale,
			MaxPixels: req.MaxPixels,
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = apperrors.NewTimeoutError(fmt.Sprintf("module %s exceeded %s", module, cfg.RequestTimeout), err)
			}
			respondError(c, apperrors.GetStatusCode(err), fmt.Sprintf("module %s failed", module), err)
			return
		}

		logger.WithFields(logrus.Fields{
			"module":             result.Module,
			"run_id":             result.RunID,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Module request completed successfully")

		c.JSON(http.StatusOK, result)
	}
}

func listModules(d Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"modules": d.Modules(),
			"state":   d.State(),
		})
	}
}

func initSession(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		scope := req.Scope
		if scope == "" {
			scope = session.EarthEngineScope
		}

		s, err := sessions.Initialize(c.Request.Context(), req.Credential, scope)
		switch {
		case errors.Is(err, session.ErrAlreadyInitialized):
			respondError(c, http.StatusConflict, "session initialization failed", err)
			return
		case err != nil:
			respondError(c, apperrors.GetStatusCode(err), "session initialization failed", err)
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

func currentSession(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sessions.Current()
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "no session", err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func listRuns(runs repository.RunRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultRunLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				respondError(c, http.StatusBadRequest, "invalid limit",
					apperrors.NewValidationError(fmt.Sprintf("limit must be a positive integer, got %q", v), err))
				return
			}
			limit = n
		}
		records, err := runs.ListRuns(c.Request.Context(), limit)
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, "failed to list runs", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": records})
	}
}

func getRun(runs repository.RunRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := runs.GetRun(c.Request.Context(), c.Param("id"))
		switch {
		case errors.Is(err, repository.ErrRunNotFound):
			respondError(c, http.StatusNotFound, "run not found", err)
			return
		case err != nil:
			respondError(c, http.StatusServiceUnavailable, "failed to load run", err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func healthCheck(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := sessions.Current()
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "available",
			Session: err == nil,
		})
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	if appErr, ok := apperrors.As(err); ok {
		resp.Kind = appErr.Type.Kind()
		resp.Suggestion = strings.TrimSpace(appErr.Details)
	}
	c.AbortWithStatusJSON(code, resp)
}
