package detect

import (
	"context"
	"strings"
)

// HeuristicExtractor applies keyword, brand, and TLD pattern matching
// against the loaded lists. Pure, no I/O.
type HeuristicExtractor struct {
	Lists *Lists
}

func (HeuristicExtractor) Name() string { return "heuristic" }

func (e HeuristicExtractor) Extract(_ context.Context, t *Target) FeatureRecord {
	f := FeatureRecord{}
	urlLower := strings.ToLower(t.Normalized)
	host := t.Hostname

	suspicious := 0
	for _, tok := range e.Lists.SuspiciousKeywords {
		if strings.Contains(urlLower, tok) {
			suspicious++
		}
	}
	f["suspicious_token_count"] = float64(suspicious)
	f["has_suspicious_tokens"] = boolFeature(suspicious > 0)

	brandCount := 0
	for brand := range e.Lists.Brands {
		if strings.Contains(host, brand) {
			brandCount++
		}
	}
	f["brand_name_count"] = float64(brandCount)
	f["suspicious_brand_usage"] = boolFeature(e.ImpersonatedBrand(t) != "")

	f["has_suspicious_tld"] = boolFeature(e.Lists.IsSuspiciousTLD(host))
	f["is_url_shortener"] = boolFeature(e.Lists.IsShortener(host))

	queryLower := strings.ToLower(t.Query)
	redirect := false
	for _, param := range e.Lists.RedirectParams {
		if strings.Contains(queryLower, param) {
			redirect = true
			break
		}
	}
	f["has_redirect_param"] = boolFeature(redirect)

	homograph := false
	for _, c := range t.Raw {
		if c > 127 {
			homograph = true
			break
		}
	}
	f["has_homograph_chars"] = boolFeature(homograph)

	f["excessive_subdomains"] = boolFeature(strings.Count(host, ".")-1 > 3)
	f["matches_typosquat"] = boolFeature(e.Lists.MatchesTyposquat(host))

	// Host-shape anomalies seen in throwaway phishing infrastructure.
	f["overlong_host"] = boolFeature(len(host) > 30)
	f["hyphen_heavy_host"] = boolFeature(strings.Count(host, "-") > 3)

	return f
}

func (e HeuristicExtractor) FeatureNames() []string {
	return []string{
		"suspicious_token_count", "has_suspicious_tokens", "brand_name_count",
		"suspicious_brand_usage", "has_suspicious_tld", "is_url_shortener",
		"has_redirect_param", "has_homograph_chars", "excessive_subdomains",
		"matches_typosquat", "overlong_host", "hyphen_heavy_host",
	}
}

// ImpersonatedBrand returns the brand token found in the host when the host
// is neither that brand's canonical domain nor one of its subdomains.
// Returns "" when no impersonation is detected.
func (e HeuristicExtractor) ImpersonatedBrand(t *Target) string {
	host := t.BareHostname()
	for brand, canonical := range e.Lists.Brands {
		if !strings.Contains(host, brand) {
			continue
		}
		if host == canonical || strings.HasSuffix(host, "."+canonical) {
			continue
		}
		// The registrable domain catches "paypal.com.evil.tk" style hosts
		// where the canonical name appears as a fake subdomain.
		if t.Registrable == canonical {
			continue
		}
		return brand
	}
	return ""
}
