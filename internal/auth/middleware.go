package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware guards routes with a single shared key, accepted as a bearer
// token or an x-api-key header. An empty key lets every request through.
func Middleware(apiKey string) gin.HandlerFunc {
	expected := strings.TrimSpace(apiKey)
	return func(c *gin.Context) {
		if expected == "" || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		got := KeyFromRequest(c.Request)
		if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1 {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

func KeyFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if v := strings.TrimSpace(r.Header.Get("Authorization")); strings.HasPrefix(v, "Bearer ") {
		if k := strings.TrimSpace(strings.TrimPrefix(v, "Bearer ")); k != "" {
			return k
		}
	}
	return strings.TrimSpace(r.Header.Get("x-api-key"))
}
