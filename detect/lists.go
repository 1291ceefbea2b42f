package detect

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lists holds the static threat-intel tables the pre-checker and the
// heuristic extractors consult. Loaded once at startup and read-only
// afterwards, so concurrent requests can share one instance without locking.
type Lists struct {
	// Whitelist are domains treated as definitively legitimate (exact or
	// subdomain match). A whitelist hit always outranks heuristics.
	Whitelist []string `yaml:"whitelist"`

	// Blacklist are domains treated as definitively malicious (exact match,
	// www. ignored).
	Blacklist []string `yaml:"blacklist"`

	// SuspiciousPatterns are host regexes commonly seen in phishing kits
	// (e.g. "-security-" on a throwaway TLD).
	SuspiciousPatterns []string `yaml:"suspicious_patterns"`

	// SuspiciousTLDs are TLDs with a high phishing ratio, with leading dot.
	SuspiciousTLDs []string `yaml:"suspicious_tlds"`

	// Shorteners are URL-shortener domains.
	Shorteners []string `yaml:"shorteners"`

	// SuspiciousKeywords are tokens that signal credential-harvesting intent.
	SuspiciousKeywords []string `yaml:"suspicious_keywords"`

	// SensitiveKeywords trigger the missing-HTTPS penalty when present in a
	// plain-http URL.
	SensitiveKeywords []string `yaml:"sensitive_keywords"`

	// Brands maps a brand token to its canonical registrable domain, used by
	// the brand-impersonation check.
	Brands map[string]string `yaml:"brands"`

	// TyposquatPatterns are host regexes for common brand misspellings.
	TyposquatPatterns []string `yaml:"typosquat_patterns"`

	// RedirectParams are query parameter names used for open redirects.
	RedirectParams []string `yaml:"redirect_params"`

	suspiciousRe []*regexp.Regexp
	typosquatRe  []*regexp.Regexp
}

// DefaultLists returns the compiled-in tables.
func DefaultLists() *Lists {
	l := &Lists{
		Whitelist: []string{
			"google.com", "facebook.com", "youtube.com", "amazon.com", "wikipedia.org",
			"twitter.com", "instagram.com", "linkedin.com", "github.com", "stackoverflow.com",
			"microsoft.com", "apple.com", "netflix.com", "reddit.com", "ebay.com",
			"paypal.com", "dropbox.com", "adobe.com", "salesforce.com", "zoom.us",
			"kaggle.com", "medium.com", "quora.com", "pinterest.com", "tumblr.com",
			"spotify.com", "yahoo.com",
		},
		Blacklist: []string{
			"phishing-site.tk", "fake-paypal.ml", "fake-bank.ml", "scam-bank.ga",
			"scam-paypal.ga", "malware-download.cf", "suspicious-login.xyz",
		},
		SuspiciousPatterns: []string{
			`.*-security-.*\.tk$`,
			`.*-verify-.*\.ml$`,
			`.*-suspended-.*\.ga$`,
			`.*-locked-.*\.cf$`,
		},
		SuspiciousTLDs: []string{
			".tk", ".ml", ".ga", ".cf", ".xyz", ".top", ".click",
			".download", ".stream", ".science", ".work", ".party",
		},
		Shorteners: []string{
			"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly",
			"short.link", "tiny.cc", "is.gd", "buff.ly",
		},
		SuspiciousKeywords: []string{
			"login", "signin", "verify", "secure", "update",
			"confirm", "account", "suspended", "limited", "locked", "expired",
			"urgent", "immediate", "action", "required", "click",
		},
		SensitiveKeywords: []string{"login", "account", "secure"},
		Brands: map[string]string{
			"paypal":    "paypal.com",
			"amazon":    "amazon.com",
			"apple":     "apple.com",
			"microsoft": "microsoft.com",
			"google":    "google.com",
			"facebook":  "facebook.com",
			"twitter":   "twitter.com",
			"instagram": "instagram.com",
			"linkedin":  "linkedin.com",
			"netflix":   "netflix.com",
			"spotify":   "spotify.com",
			"ebay":      "ebay.com",
			"yahoo":     "yahoo.com",
			"adobe":     "adobe.com",
			"dropbox":   "dropbox.com",
			"github":    "github.com",
		},
		TyposquatPatterns: []string{
			`g[o0]{2}gle`,
			`fac[e3]b[o0]{2}k`,
			`amaz[o0]n`,
			`micr[o0]s[o0]ft`,
			`payp[a4]l`,
		},
		RedirectParams: []string{"redirect", "url", "next", "return", "goto", "continue"},
	}
	if err := l.compile(); err != nil {
		// Compiled-in patterns are tested; this is unreachable in practice.
		panic(err)
	}
	return l
}

// LoadLists returns the defaults merged with an optional YAML override file.
// A section present in the file replaces the default section wholesale.
func LoadLists(path string) (*Lists, error) {
	l := DefaultLists()
	if path == "" {
		return l, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lists file: %w", err)
	}

	var override Lists
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("parse lists file: %w", err)
	}

	if override.Whitelist != nil {
		l.Whitelist = override.Whitelist
	}
	if override.Blacklist != nil {
		l.Blacklist = override.Blacklist
	}
	if override.SuspiciousPatterns != nil {
		l.SuspiciousPatterns = override.SuspiciousPatterns
	}
	if override.SuspiciousTLDs != nil {
		l.SuspiciousTLDs = override.SuspiciousTLDs
	}
	if override.Shorteners != nil {
		l.Shorteners = override.Shorteners
	}
	if override.SuspiciousKeywords != nil {
		l.SuspiciousKeywords = override.SuspiciousKeywords
	}
	if override.SensitiveKeywords != nil {
		l.SensitiveKeywords = override.SensitiveKeywords
	}
	if override.Brands != nil {
		l.Brands = override.Brands
	}
	if override.TyposquatPatterns != nil {
		l.TyposquatPatterns = override.TyposquatPatterns
	}
	if override.RedirectParams != nil {
		l.RedirectParams = override.RedirectParams
	}

	if err := l.compile(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lists) compile() error {
	l.suspiciousRe = l.suspiciousRe[:0]
	for _, p := range l.SuspiciousPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("suspicious pattern %q: %w", p, err)
		}
		l.suspiciousRe = append(l.suspiciousRe, re)
	}
	l.typosquatRe = l.typosquatRe[:0]
	for _, p := range l.TyposquatPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("typosquat pattern %q: %w", p, err)
		}
		l.typosquatRe = append(l.typosquatRe, re)
	}
	return nil
}

// WhitelistMatch returns the whitelist entry the host matches, exactly or as
// a subdomain, or "" when there is no match.
func (l *Lists) WhitelistMatch(host string) string {
	clean := strings.TrimPrefix(host, "www.")
	for _, legit := range l.Whitelist {
		if clean == legit || strings.HasSuffix(clean, "."+legit) {
			return legit
		}
	}
	return ""
}

// IsBlacklisted reports whether the host is a known malicious domain.
func (l *Lists) IsBlacklisted(host string) bool {
	clean := strings.TrimPrefix(host, "www.")
	for _, bad := range l.Blacklist {
		if clean == bad {
			return true
		}
	}
	return false
}

// MatchesSuspiciousPattern reports whether the host matches any of the
// phishing-kit host patterns.
func (l *Lists) MatchesSuspiciousPattern(host string) bool {
	for _, re := range l.suspiciousRe {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// MatchesTyposquat reports whether the host matches a brand misspelling.
func (l *Lists) MatchesTyposquat(host string) bool {
	for _, re := range l.typosquatRe {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// IsSuspiciousTLD reports whether the host ends in a high-abuse TLD.
func (l *Lists) IsSuspiciousTLD(host string) bool {
	for _, tld := range l.SuspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

// IsShortener reports whether the host belongs to a URL shortener.
func (l *Lists) IsShortener(host string) bool {
	clean := strings.TrimPrefix(host, "www.")
	for _, s := range l.Shorteners {
		if clean == s || strings.HasSuffix(clean, "."+s) {
			return true
		}
	}
	return false
}
