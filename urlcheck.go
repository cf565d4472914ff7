package exporter

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidatedURL is a URL that passed the allow-list check. Only validated
// URLs ever reach the browser's navigation call; raw strings are rejected
// at construction. The zero value is not valid.
type ValidatedURL struct {
	raw string
}

// String returns the validated URL. Empty for the zero value.
func (v ValidatedURL) String() string { return v.raw }

// AllowList restricts which URLs the browser may be pointed at. Navigating
// an attacker-controlled URL is a server-side request forgery vector, so
// every externally supplied URL must pass Validate before use.
type AllowList struct {
	schemes map[string]struct{}
	hosts   map[string]struct{}
}

// NewAllowList builds an allow-list for the given hosts (hostname or
// host:port, compared case-insensitively). Only http and https schemes are
// ever accepted.
func NewAllowList(hosts ...string) *AllowList {
	a := &AllowList{
		schemes: map[string]struct{}{"http": {}, "https": {}},
		hosts:   make(map[string]struct{}, len(hosts)),
	}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			a.hosts[h] = struct{}{}
		}
	}
	return a
}

// Validate parses raw and checks it against the allow-list. The host is
// matched both with and without its port so "localhost" also covers
// "localhost:3000" entries and vice versa only when listed explicitly.
func (a *AllowList) Validate(raw string) (ValidatedURL, error) {
	if raw == "" {
		return ValidatedURL{}, fmt.Errorf("%w: empty url", ErrDisallowedURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ValidatedURL{}, fmt.Errorf("%w: %v", ErrDisallowedURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if _, ok := a.schemes[scheme]; !ok {
		return ValidatedURL{}, fmt.Errorf("%w: scheme %q", ErrDisallowedURL, u.Scheme)
	}

	host := strings.ToLower(u.Host)
	if host == "" {
		return ValidatedURL{}, fmt.Errorf("%w: missing host", ErrDisallowedURL)
	}

	if _, ok := a.hosts[host]; ok {
		return ValidatedURL{raw: raw}, nil
	}

	// Retry without the port: an allow-list entry "cdn.example.com" covers
	// any port on that hostname.
	if bare, _, err := net.SplitHostPort(host); err == nil {
		if _, ok := a.hosts[bare]; ok {
			return ValidatedURL{raw: raw}, nil
		}
	}

	return ValidatedURL{}, fmt.Errorf("%w: host %q", ErrDisallowedURL, u.Host)
}

// SanitizeURLForLog reduces a possibly attacker-controlled URL to its scheme
// and host for logging. Path, query and userinfo are dropped so raw values
// never reach the logs.
func SanitizeURLForLog(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(unparseable)"
	}
	return u.Scheme + "://" + u.Host
}
