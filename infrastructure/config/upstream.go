package config

import (
	"errors"
	"strings"
	"sync"

	"csgclient/pkg/utils"
)

// ErrInvalidUpstreamURL is returned for values that are not absolute http(s) URLs
var ErrInvalidUpstreamURL = errors.New("upstream URL must start with http:// or https://")

// NormalizeUpstreamURL validates raw and trims trailing slashes
func NormalizeUpstreamURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if !utils.IsHTTPURL(u) {
		return "", ErrInvalidUpstreamURL
	}
	return strings.TrimRight(u, "/"), nil
}

// UpstreamSetting is the runtime-replaceable base URL of the analysis
// service. The zero value is unconfigured; last write wins.
type UpstreamSetting struct {
	mu  sync.RWMutex
	url string
}

// NewUpstreamSetting seeds the setting from configuration. An empty initial
// value leaves the upstream unconfigured.
func NewUpstreamSetting(cfg *Config) *UpstreamSetting {
	s := &UpstreamSetting{}
	if u, err := NormalizeUpstreamURL(cfg.UpstreamAPI); err == nil {
		s.url = u
	}
	return s
}

// Get returns the current URL and whether one is configured
func (s *UpstreamSetting) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url, s.url != ""
}

// Set replaces the URL. Invalid values leave the previous one in place.
func (s *UpstreamSetting) Set(raw string) (string, error) {
	u, err := NormalizeUpstreamURL(raw)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.url = u
	s.mu.Unlock()
	return u, nil
}
