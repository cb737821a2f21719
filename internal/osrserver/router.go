package osrserver

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-sync-router/internal/auth"
	"github.com/r9s-ai/open-sync-router/internal/logx"
	"github.com/r9s-ai/open-sync-router/internal/syncer"
	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/requestid"
)

func NewRouter(
	cfg *config.Config,
	st *state,
	client *syncer.Client,
	accessLogger *log.Logger,
	accessLoggerColor bool,
	requestIDHeaderKey string,
	accessFormatter *logx.AccessLogFormatter,
) *gin.Engine {
	resolvedRequestIDHeaderKey := requestid.ResolveHeaderKey(requestIDHeaderKey)
	r := gin.New()
	r.Use(requestIDMiddleware(resolvedRequestIDHeaderKey))
	if cfg.Logging.AccessLog {
		r.Use(requestLoggerWithColor(accessLogger, accessLoggerColor, resolvedRequestIDHeaderKey, accessFormatter))
	}
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORS))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	h := &handlers{
		defaultEnv: strings.TrimSpace(cfg.Environments.Default),
		state:      st,
		client:     client,
	}
	secured := r.Group("/")
	secured.Use(auth.Middleware(cfg.Auth.APIKey))
	secured.GET("/", h.dispatch)
	secured.GET("/api", h.dispatch)
	secured.GET("/api/:endpoint", h.dispatch)
	return r
}

func requestIDMiddleware(headerKey string) gin.HandlerFunc {
	headerKey = requestid.ResolveHeaderKey(headerKey)
	return func(c *gin.Context) {
		id := requestid.FromHeader(c.GetHeader(headerKey))
		c.Header(headerKey, id)
		c.Set(headerKey, id)
		c.Next()
	}
}

// corsMiddleware sets the CORS headers on every response and answers
// preflight requests itself.
func corsMiddleware(cors config.CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cors.AllowOrigin)
		c.Header("Access-Control-Allow-Methods", cors.AllowMethods)
		c.Header("Access-Control-Allow-Headers", cors.AllowHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
