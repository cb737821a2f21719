package config

import (
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type HostCredentials struct {
	Headers map[string]string `yaml:"headers"`
}

// Credentials maps upstream hosts to the headers sent with every request to
// that host.
type Credentials struct {
	Path  string
	hosts map[string]HostCredentials
}

// LoadCredentials reads a credentials file. A missing file yields empty
// credentials; requests that need auth then fail at use time.
func LoadCredentials(path string) (*Credentials, error) {
	// #nosec G304 -- path comes from trusted config/env.
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{Path: path, hosts: map[string]HostCredentials{}}, nil
		}
		return nil, err
	}
	c, err := ParseCredentials(b)
	if err != nil {
		return nil, err
	}
	c.Path = path
	return c, nil
}

func ParseCredentials(b []byte) (*Credentials, error) {
	var raw map[string]HostCredentials
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	hosts := make(map[string]HostCredentials, len(raw))
	for host, hc := range raw {
		key := strings.ToLower(strings.TrimSpace(host))
		if key == "" {
			continue
		}
		hosts[key] = hc
	}
	return &Credentials{hosts: hosts}, nil
}

// HeadersFor returns the headers configured for the host of rawURL. An entry
// for host:port wins over one for the bare host name.
func (c *Credentials) HeadersFor(rawURL string) (http.Header, bool) {
	if c == nil {
		return nil, false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, false
	}
	for _, key := range []string{strings.ToLower(u.Host), strings.ToLower(u.Hostname())} {
		hc, ok := c.hosts[key]
		if !ok {
			continue
		}
		h := make(http.Header, len(hc.Headers))
		for k, v := range hc.Headers {
			h.Set(k, v)
		}
		return h, true
	}
	return nil, false
}

// Hosts lists the configured hosts in sorted order.
func (c *Credentials) Hosts() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.hosts))
	for h := range c.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
