package detect

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Target is a parsed, normalized URL. Immutable once built; every extractor
// works from the same instance so the URL is parsed exactly once per request.
type Target struct {
	Raw        string // input as received
	Normalized string // with default scheme applied
	Scheme     string
	Host       string // host[:port], lowercase
	Hostname   string // host without port
	Port       string
	Path       string
	Query      string
	Fragment   string

	// Registrable is the eTLD+1 of the hostname (e.g. "paypal.com" for
	// "secure.paypal.com"). Empty for IP-literal hosts.
	Registrable string
}

// ParseTarget validates and parses a raw URL string. URLs without a scheme
// get "http://" prefixed before parsing. Returns ErrMalformedURL when the
// input is empty, unparsable, or has no host.
func ParseTarget(raw string) (*Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty input: %w", ErrMalformedURL)
	}

	normalized := trimmed
	if !strings.HasPrefix(strings.ToLower(trimmed), "http://") &&
		!strings.HasPrefix(strings.ToLower(trimmed), "https://") {
		normalized = "http://" + trimmed
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, ErrMalformedURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("no host in %q: %w", raw, ErrMalformedURL)
	}

	t := &Target{
		Raw:        trimmed,
		Normalized: normalized,
		Scheme:     strings.ToLower(u.Scheme),
		Host:       strings.ToLower(u.Host),
		Hostname:   strings.ToLower(u.Hostname()),
		Port:       u.Port(),
		Path:       u.Path,
		Query:      u.RawQuery,
		Fragment:   u.Fragment,
	}

	if net.ParseIP(t.Hostname) == nil {
		// Best effort: a bogus TLD still yields a usable suffix+1.
		if reg, err := publicsuffix.EffectiveTLDPlusOne(t.Hostname); err == nil {
			t.Registrable = reg
		}
	}

	return t, nil
}

// IsIPHost reports whether the hostname is an IP literal.
func (t *Target) IsIPHost() bool {
	return net.ParseIP(t.Hostname) != nil
}

// BareHostname strips a leading "www." the way list lookups expect.
func (t *Target) BareHostname() string {
	return strings.TrimPrefix(t.Hostname, "www.")
}

// TLD returns the last dot-separated label of the hostname, with a leading
// dot (".tk"), or "" for IP literals and single-label hosts.
func (t *Target) TLD() string {
	if t.IsIPHost() {
		return ""
	}
	idx := strings.LastIndex(t.Hostname, ".")
	if idx < 0 {
		return ""
	}
	return t.Hostname[idx:]
}
