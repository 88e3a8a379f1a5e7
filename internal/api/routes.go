package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"

	"userapi/internal/shared"
	"userapi/internal/user"
)

// RouterOptions carries the environment-dependent switches for the chain.
type RouterOptions struct {
	EnforceHTTPS bool
}

// SetupRouter wires the middleware chain and the user routes. Order matters:
// the tracing middleware must wrap the error finalizer so failures are
// recorded on a still-open span, and the finalizer must wrap the handlers so
// it sees their attached errors on the way out.
func SetupRouter(handler *user.Handler, tracer trace.Tracer, metrics *shared.AppMetrics, logger *otelzap.Logger, opts RouterOptions) *gin.Engine {
	if gin.Mode() == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	limiter := shared.NewRateLimiter(map[string]shared.RouteLimit{
		"POST /api/users":       {Requests: 20, Window: time.Minute},
		"PUT /api/users/:id":    {Requests: 60, Window: time.Minute},
		"DELETE /api/users/:id": {Requests: 60, Window: time.Minute},
		"GET /api/users":        {Requests: 120, Window: time.Minute},
	}, logger, metrics)

	enforcer := shared.NewHTTPSEnforcer(opts.EnforceHTTPS, logger)

	router.Use(shared.RequestIDMiddleware())
	router.Use(shared.TracingMiddleware(tracer, metrics))
	router.Use(shared.LoggingMiddleware(logger))
	router.Use(shared.ErrorFinalizer(metrics, logger))
	router.Use(corsMiddleware())
	router.Use(enforcer.Middleware())
	router.Use(limiter.Middleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	users := router.Group("/api/users")
	{
		users.POST("", handler.CreateUser)
		users.GET("/:id", handler.GetUser)
		users.PUT("/:id", handler.UpdateUser)
		users.DELETE("/:id", handler.DeleteUser)
		users.GET("", handler.GetAllUsers)
	}

	router.NoRoute(func(c *gin.Context) {
		c.Error(shared.NotFound("Route not found"))
		c.Abort()
	})

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
