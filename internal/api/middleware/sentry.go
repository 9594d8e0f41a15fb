package middleware

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Conceptual-Machines/scoreviz/internal/logger"
	"github.com/Conceptual-Machines/scoreviz/internal/metrics"
)

// RequestIDHeader carries the request id on responses and, when supplied, requests
const RequestIDHeader = "X-Request-ID"

const (
	keyRequestID       = "request_id"
	keyRunID           = "run_id"
	sentryFlushTimeout = 2 * time.Second
)

// RequestTracking assigns a request id, logs the outcome and records API timings.
// Either recorder may be nil.
func RequestTracking(sentryMetrics *metrics.SentryMetrics, cloudwatch *metrics.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := requestIDFrom(c.GetHeader(RequestIDHeader))
		c.Set(keyRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := routeOf(c)
		logRequest(status, requestFields(c, requestID, status, elapsed))

		if sentryMetrics != nil {
			sentryMetrics.RecordAPIRequest(c.Request.Context(), route, status, elapsed)
		}
		if cloudwatch != nil {
			cloudwatch.RecordAPIRequest(route, status, elapsed)
		}
	}
}

// requestIDFrom keeps a caller-supplied id only when it is a UUID
func requestIDFrom(header string) string {
	if _, err := uuid.Parse(header); err == nil {
		return header
	}
	return uuid.NewString()
}

// routeOf prefers the registered pattern so /api/runs/:id aggregates across ids
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}

func requestFields(c *gin.Context, requestID string, status int, elapsed time.Duration) logger.Fields {
	fields := logger.Fields{
		"request_id":  requestID,
		"duration_ms": elapsed.Milliseconds(),
		"status_code": status,
		"method":      c.Request.Method,
		"path":        c.Request.URL.Path,
		"client_ip":   c.ClientIP(),
	}
	if runID := c.GetString(keyRunID); runID != "" {
		fields["run_id"] = runID
	}
	return fields
}

func logRequest(status int, fields logger.Fields) {
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("Request failed with server error", nil, fields)
	case status >= http.StatusBadRequest:
		logger.Warn("Request failed with client error", fields)
	default:
		logger.Info("Request completed", fields)
	}
}

// SentryMiddleware attaches a Sentry hub to each request
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	})
}

// RecoverWithSentry turns a panic into a 500 and reports it, tagged with the run id
// when a visualization run was in progress.
func RecoverWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			capturePanic(c, recovered)

			requestID := c.GetString(keyRequestID)
			logger.Error("Panic recovered", nil, logger.Fields{
				"request_id": requestID,
				"run_id":     c.GetString(keyRunID),
				"error":      recovered,
				"path":       c.Request.URL.Path,
			})

			body := gin.H{"error": "Internal server error", "request_id": requestID}
			if runID := c.GetString(keyRunID); runID != "" {
				body["run_id"] = runID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}

func capturePanic(c *gin.Context, recovered interface{}) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(c.Request)
		scope.SetContext("request", map[string]interface{}{
			"request_id": c.GetString(keyRequestID),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		if runID := c.GetString(keyRunID); runID != "" {
			scope.SetTag("run_id", runID)
		}
		hub.RecoverWithContext(c.Request.Context(), recovered)
	})
}
