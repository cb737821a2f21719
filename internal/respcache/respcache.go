// Package respcache stores upstream response bodies on disk, keyed by
// request method and URL.
//
// Layout: {dir}/{host[-port]}/{METHOD}/{sha256(url[+body for POST])}, where
// every host character outside [A-Za-z0-9_.] becomes '-'.
package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var ErrUnsupportedURL = errors.New("url must be http or https")

var unsafeHostChars = regexp.MustCompile(`[^\w.]`)

type Cache struct {
	Dir string
	// TTL expires entries by file modification time; zero keeps them forever.
	TTL time.Duration

	now func() time.Time
}

func New(dir string, ttl time.Duration) *Cache {
	return &Cache{Dir: dir, TTL: ttl}
}

// Path returns the file an entry for method and rawURL lives in.
func (c *Cache) Path(method, rawURL string, body []byte) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", ErrUnsupportedURL
	}
	host := u.Hostname()
	if p := u.Port(); p != "" {
		host += "-" + p
	}
	host = unsafeHostChars.ReplaceAllString(host, "-")
	method = strings.ToUpper(strings.TrimSpace(method))

	key := rawURL
	if method == "POST" {
		key += string(body)
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.Dir, host, method, hex.EncodeToString(sum[:])), nil
}

// Get returns a cached body. Misses, expired entries and unreadable files
// all report false.
func (c *Cache) Get(method, rawURL string, body []byte) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	p, err := c.Path(method, rawURL, body)
	if err != nil {
		return nil, false
	}
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return nil, false
	}
	if c.TTL > 0 && c.clock().Sub(fi.ModTime()) > c.TTL {
		return nil, false
	}
	// #nosec G304 -- path is derived from a hash under the configured dir.
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Put stores data atomically (temp file + rename).
func (c *Cache) Put(method, rawURL string, body, data []byte) error {
	if c == nil {
		return nil
	}
	p, err := c.Path(method, rawURL, body)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (c *Cache) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}
