// Package syncer moves records between a source and a target system through
// entity maps: it fetches, normalizes, builds payloads and writes them.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/r9s-ai/open-sync-router/internal/respcache"
	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/httpclient"
)

const maxBodyBytes = 32 << 20

type Response struct {
	StatusCode int
	Body       []byte
	Cached     bool
}

func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is safe for concurrent use when HTTP is.
type Client struct {
	HTTP        httpclient.HTTPDoer
	Credentials *config.Credentials
	// Cache serves and stores successful GET responses when set.
	Cache *respcache.Cache
}

// Do sends one request. Transport failures are returned as errors; any
// response, whatever its status, is returned as a Response. Nothing retries.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers http.Header, body []byte) (Response, error) {
	if c == nil || c.HTTP == nil {
		return Response{}, errors.New("syncer: nil http client")
	}
	cacheable := method == http.MethodGet && c.Cache != nil
	if cacheable {
		if b, ok := c.Cache.Get(method, rawURL, body); ok {
			return Response{StatusCode: http.StatusOK, Body: b, Cached: true}, nil
		}
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return Response{}, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}

	out := Response{StatusCode: resp.StatusCode, Body: b}
	if cacheable && out.OK() {
		if err := c.Cache.Put(method, rawURL, body, b); err != nil {
			log.Printf("response cache write failed: url=%s err=%v", rawURL, err)
		}
	}
	return out, nil
}

// authHeaders resolves outbound headers for rawURL. Missing credentials are a
// ConfigError only when required.
func (c *Client) authHeaders(rawURL string, required bool) (http.Header, error) {
	h, ok := c.Credentials.HeadersFor(rawURL)
	if ok {
		return h, nil
	}
	if required {
		return nil, &ConfigError{URL: rawURL, Err: ErrNoAuthConfig}
	}
	return http.Header{}, nil
}

// joinURL appends escaped path segments to base.
func joinURL(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(escapeSegment(s))
	}
	return b.String()
}

// escapeSegment percent-encodes everything except A-Z a-z 0-9 - _ . ~
// (RFC 3986 unreserved), spaces included.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// decodeJSON decodes exactly one JSON value, keeping numbers exact.
func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}

// decodeLoose decodes a diagnostic body, giving nil when it is not JSON.
func decodeLoose(b []byte) any {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	v, err := decodeJSON(b)
	if err != nil {
		return nil
	}
	return v
}
