package shared

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// HTTPSEnforcer redirects plain-HTTP requests to HTTPS when enabled.
// Requests that arrived over TLS, carry an https X-Forwarded-Proto from a
// load balancer, or come from localhost pass through unchanged.
type HTTPSEnforcer struct {
	enabled bool
	logger  *otelzap.Logger
}

func NewHTTPSEnforcer(enabled bool, logger *otelzap.Logger) *HTTPSEnforcer {
	return &HTTPSEnforcer{enabled: enabled, logger: logger}
}

func (e *HTTPSEnforcer) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !e.enabled || c.Request.TLS != nil {
			c.Next()
			return
		}

		if c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Next()
			return
		}

		host := c.Request.Host
		if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
			c.Next()
			return
		}

		target := "https://" + host + c.Request.RequestURI

		e.logger.Ctx(c.Request.Context()).Info("Redirecting to HTTPS",
			zap.String("host", host),
			zap.String("uri", c.Request.RequestURI),
		)

		c.Redirect(http.StatusMovedPermanently, target)
		c.Abort()
	}
}
