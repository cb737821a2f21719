package httpclient

import (
	"net/http"
	"time"
)

// HTTPDoer is the subset of *http.Client the sync transport relies on.
// Tests inject a fake so source and target calls never leave the process.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns the client used for upstream calls. A non-positive timeout
// leaves the client without a deadline; callers then rely on the context.
func New(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{Timeout: timeout}
}
