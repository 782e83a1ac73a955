package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// APIRecorder stores per-path request counters.
type APIRecorder interface {
	RecordAPICall(ctx context.Context, path string, statusCode int, latencyMs float64) error
}

// Metrics returns a middleware that records API metrics
func Metrics(recorder APIRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only track API endpoints
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		latency := float64(time.Since(start).Microseconds()) / 1000
		status := c.Writer.Status()
		path := normalizePath(c.Request.URL.Path)

		// 请求上下文可能已取消，使用独立 context 写入统计
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := recorder.RecordAPICall(ctx, path, status, latency); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to record metrics")
		}
	}
}

// normalizePath groups paths with ids, e.g. /api/v1/movies/550 -> /api/v1/movies/:id
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isNumeric(part) || isUUID(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// isNumeric checks if a string is purely numeric
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
