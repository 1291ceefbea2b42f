package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ReputationChecker is an external source that can flag a host as known-bad.
// Checkers are consulted by the pre-checker in network mode only, and a
// flagged host is treated like a blacklist hit.
type ReputationChecker interface {
	Name() string
	// Check reports whether the host is flagged, with a human-readable
	// reason. Lookup failures are reported as not-flagged: a reputation
	// source that cannot answer contributes nothing.
	Check(ctx context.Context, host string) (bool, string)
}

// SafeBrowsingChecker queries the Google Safe Browsing v4 lookup API.
// A missing API key disables the checker.
type SafeBrowsingChecker struct {
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

func (SafeBrowsingChecker) Name() string { return "safe-browsing" }

func (c SafeBrowsingChecker) Check(ctx context.Context, host string) (bool, string) {
	if c.APIKey == "" {
		return false, ""
	}

	endpoint := "https://safebrowsing.googleapis.com/v4/threatMatches:find?key=" + c.APIKey
	body := fmt.Sprintf(`{
	  "client": {"clientId": "phishvet", "clientVersion": "1.0"},
	  "threatInfo": {
	    "threatTypes": ["MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"],
	    "platformTypes": ["ANY_PLATFORM"],
	    "threatEntryTypes": ["URL"],
	    "threatEntries": [{"url": "http://%s"}]
	  }
	}`, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return false, ""
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.timeout()}
	resp, err := client.Do(req)
	if err != nil {
		c.Logger.Debug().Err(err).Str("host", host).Msg("safe browsing lookup failed")
		return false, ""
	}
	defer resp.Body.Close()

	var result struct {
		Matches []json.RawMessage `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, ""
	}
	if len(result.Matches) > 0 {
		return true, "Flagged by Google Safe Browsing"
	}
	return false, ""
}

func (c SafeBrowsingChecker) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 6 * time.Second
	}
	return c.Timeout
}

// Domain-based realtime blocklists that answer for URL/domain reputation.
var domainRBLs = []string{
	"multi.surbl.org",
	"uribl.spameatingmonkey.net",
	"dbl.spamhaus.org",
}

// RBLChecker queries DNS realtime blocklists for the host's registrable
// domain. A listed domain answers with a 127.0.0.x address; anything else,
// including lookup failure, means not listed.
type RBLChecker struct {
	Timeout time.Duration
	// DNSAddr is the resolver to query, host:port. Defaults to 8.8.8.8:53.
	DNSAddr string
	Logger  zerolog.Logger
}

func (RBLChecker) Name() string { return "dns-rbl" }

func (c RBLChecker) Check(ctx context.Context, host string) (bool, string) {
	addr := c.DNSAddr
	if addr == "" {
		addr = "8.8.8.8:53"
	}
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: c.timeout()}
			return d.DialContext(ctx, "udp", addr)
		},
	}

	for _, rbl := range domainRBLs {
		lookupCtx, cancel := context.WithTimeout(ctx, c.timeout())
		addrs, err := resolver.LookupHost(lookupCtx, host+"."+rbl)
		cancel()
		if err != nil || len(addrs) == 0 {
			continue
		}
		// Only the 127.0.0.x convention is a listing; anything else is a
		// wildcard resolver or an error page.
		for _, a := range addrs {
			if strings.HasPrefix(a, "127.0.0.") {
				c.Logger.Debug().Str("host", host).Str("rbl", rbl).Msg("domain listed on RBL")
				return true, "Listed on " + rbl
			}
		}
	}
	return false, ""
}

func (c RBLChecker) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 3 * time.Second
	}
	return c.Timeout
}
