package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestEngine(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(key))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		method string
		header map[string]string
		want   int
	}{
		{name: "disabled", key: "", method: http.MethodGet, want: http.StatusOK},
		{name: "missing key", key: "k", method: http.MethodGet, want: http.StatusUnauthorized},
		{name: "wrong key", key: "k", method: http.MethodGet, header: map[string]string{"x-api-key": "nope"}, want: http.StatusUnauthorized},
		{name: "bearer", key: "k", method: http.MethodGet, header: map[string]string{"Authorization": "Bearer k"}, want: http.StatusOK},
		{name: "x-api-key", key: "k", method: http.MethodGet, header: map[string]string{"x-api-key": "k"}, want: http.StatusOK},
		{name: "empty bearer falls back", key: "k", method: http.MethodGet, header: map[string]string{"Authorization": "Bearer ", "x-api-key": "k"}, want: http.StatusOK},
		{name: "preflight passes", key: "k", method: http.MethodOptions, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newTestEngine(tc.key).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d want=%d body=%s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
