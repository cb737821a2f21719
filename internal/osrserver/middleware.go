package osrserver

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-sync-router/internal/logx"
	"github.com/r9s-ai/open-sync-router/pkg/requestid"
)

type contextFieldSpec struct {
	ctxKey string
	logKey string
}

const (
	ctxEndpoint       = "osr.endpoint"
	ctxEnv            = "osr.env"
	ctxEntity         = "osr.entity"
	ctxID             = "osr.id"
	ctxTargetID       = "osr.target_id"
	ctxMode           = "osr.mode"
	ctxUpstreamStatus = "osr.upstream_status"
	ctxUpstreamURL    = "osr.upstream_url"
	ctxCached         = "osr.cached"
	ctxError          = "osr.error"
)

var accessLogContextFieldSpecs = []contextFieldSpec{
	{ctxKey: ctxEndpoint, logKey: "endpoint"},
	{ctxKey: ctxEnv, logKey: "env"},
	{ctxKey: ctxEntity, logKey: "entity"},
	{ctxKey: ctxID, logKey: "id"},
	{ctxKey: ctxTargetID, logKey: "target_id"},
	{ctxKey: ctxMode, logKey: "mode"},
	{ctxKey: ctxUpstreamStatus, logKey: "upstream_status"},
	{ctxKey: ctxUpstreamURL, logKey: "upstream_url"},
	{ctxKey: ctxCached, logKey: "cached"},
	{ctxKey: ctxError, logKey: "error"},
}

func requestLoggerWithColor(l *log.Logger, color bool, requestIDHeaderKey string, accessFormatter *logx.AccessLogFormatter) gin.HandlerFunc {
	requestIDHeaderKey = requestid.ResolveHeaderKey(requestIDHeaderKey)
	if l == nil {
		l = log.New(os.Stdout, "", 0)
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{"request_id": c.GetString(requestIDHeaderKey)}
		copyContextFieldsBySpec(c, fields, accessLogContextFieldSpecs)
		line := logx.AccessLogLine{
			Time:     time.Now(),
			Status:   c.Writer.Status(),
			Latency:  time.Since(start),
			ClientIP: c.ClientIP(),
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			Fields:   fields,
		}
		if accessFormatter != nil {
			l.Println(accessFormatter.Format(line, color))
			return
		}
		l.Println(logx.FormatRequestLineWithColor(line, color))
	}
}

func copyContextFieldsBySpec(c *gin.Context, dst map[string]any, specs []contextFieldSpec) {
	for _, s := range specs {
		if v, ok := c.Get(s.ctxKey); ok {
			dst[s.logKey] = v
		}
	}
}
