package syncer

import (
	"errors"
	"fmt"

	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
)

var (
	ErrEntityNotAllowed = errors.New("entity not allowed")
	ErrNoAuthConfig     = errors.New("no auth config for host")
)

// EntityError reports an entity name with no map on the requested side.
type EntityError struct {
	Side   entitymap.Side
	Entity string
}

func (e *EntityError) Error() string {
	if e.Side == entitymap.SideSource {
		return fmt.Sprintf("source entity not allowed: %q", e.Entity)
	}
	return fmt.Sprintf("entity not allowed: %q", e.Entity)
}

func (e *EntityError) Unwrap() error { return ErrEntityNotAllowed }

// Upstream operations, as reported in UpstreamError.Op.
const (
	OpFetchSource  = "fetch source record"
	OpFetchTarget  = "fetch target record"
	OpCreateTarget = "create target"
	OpUpdateTarget = "update target"
)

// ConfigError is fatal to the request and never retried.
type ConfigError struct {
	URL string
	Err error
}

func (e *ConfigError) Error() string {
	if e.URL == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config: %v (url=%s)", e.Err, e.URL)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UpstreamError carries what is known about a failed source or target call.
// StatusCode is zero when the request never got a response.
type UpstreamError struct {
	Op         string
	StatusCode int
	URL        string
	TargetID   string
	Payload    map[string]any
	// Body is the decoded upstream response, or nil when it was not JSON.
	Body    any
	RawBody []byte
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := "failed to " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": http_code=%d", e.StatusCode)
	}
	msg += " url=" + e.URL
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// DecodeError reports an upstream body that is not valid JSON.
type DecodeError struct {
	URL     string
	RawBody []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("json decode failed: url=%s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
