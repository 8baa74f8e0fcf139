package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/pkg/logger"
)

const (
	// CorrelationIDHeader is read from requests and echoed on responses.
	// Events published while serving the request carry the same id.
	CorrelationIDHeader = logger.CorrelationIDHeader

	// legacyRequestIDHeader is accepted from callers that predate CorrelationIDHeader
	legacyRequestIDHeader = "X-Request-ID"
)

// CorrelationID attaches a correlation id to the request context, taken from
// the request headers when it is a valid UUID and generated otherwise.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := incomingCorrelationID(c)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		ctx := logger.ContextWithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(CorrelationIDHeader, correlationID)

		c.Next()
	}
}

func incomingCorrelationID(c *gin.Context) string {
	for _, header := range []string{CorrelationIDHeader, legacyRequestIDHeader} {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return ""
}

// GetCorrelationID returns the request's correlation id
func GetCorrelationID(c *gin.Context) string {
	return logger.CorrelationIDFromContext(c.Request.Context())
}
