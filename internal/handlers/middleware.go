package handlers

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-storefront/internal/apperr"
)

const (
	requestIDHeader = "X-Request-Id"
	adminUserHeader = "X-Admin-User"
	ctxLogger       = "logger"
	ctxActor        = "actor"
)

// requestLogger tags each request with an id and logs it once finished.
func requestLogger(base logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		log := base.WithField("request_id", reqID)
		c.Set(ctxLogger, log)

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= 500 {
			entry.Error("request failed")
			return
		}
		entry.Info("request")
	}
}

func loggerFrom(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(ctxLogger); ok {
		if log, ok := v.(logrus.FieldLogger); ok {
			return log
		}
	}
	return logrus.StandardLogger()
}

// adminAuth requires "Authorization: Bearer <token>". A missing header is
// 401, a wrong token 403. An empty configured token rejects everyone.
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		got := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || got == "" {
			abortWithError(c, apperr.Auth("Authentication required"))
			return
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			abortWithError(c, apperr.Forbidden("Admin access required"))
			return
		}
		actor := strings.TrimSpace(c.GetHeader(adminUserHeader))
		if actor == "" {
			actor = "admin"
		}
		c.Set(ctxActor, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) string {
	if v := c.GetString(ctxActor); v != "" {
		return v
	}
	return "admin"
}
