package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"go.uber.org/zap"
)

const (
	headerNamespace = "X-Namespace"
	headerRequestID = "X-Request-Id"
)

// NamespaceRequired threads the tenant namespace from the request header
// into the context every service call reads it from.
func (s *Server) NamespaceRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		namespace := strings.TrimSpace(c.GetHeader(headerNamespace))
		if namespace == "" {
			AbortWithError(c, newValidationError("namespace", "missing_namespace", "X-Namespace header is required"))
			return
		}
		ctx := nscontext.WithNamespace(c.Request.Context(), namespace)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Server) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}
		if status >= http.StatusInternalServerError {
			s.log.Error("request failed", fields...)
		} else {
			s.log.Info("request", fields...)
		}
	}
}
