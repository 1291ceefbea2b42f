package detect

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	ipv4Re = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
	hexRe  = regexp.MustCompile(`%[0-9a-fA-F]{2}`)
)

// LexicalExtractor derives features from the URL's structure alone. Pure and
// always fast: no I/O.
type LexicalExtractor struct{}

func (LexicalExtractor) Name() string { return "lexical" }

func (LexicalExtractor) Extract(_ context.Context, t *Target) FeatureRecord {
	u := t.Normalized
	f := FeatureRecord{}

	f["url_length"] = float64(len(u))
	f["host_length"] = float64(len(t.Host))
	f["path_length"] = float64(len(t.Path))
	f["query_length"] = float64(len(t.Query))
	f["fragment_length"] = float64(len(t.Fragment))

	f["count_dots"] = float64(strings.Count(u, "."))
	f["count_hyphens"] = float64(strings.Count(u, "-"))
	f["count_underscores"] = float64(strings.Count(u, "_"))
	f["count_slashes"] = float64(strings.Count(u, "/"))
	f["count_at_symbols"] = float64(strings.Count(u, "@"))
	f["count_question_marks"] = float64(strings.Count(u, "?"))
	f["count_equals"] = float64(strings.Count(u, "="))
	f["count_ampersands"] = float64(strings.Count(u, "&"))
	f["count_percent"] = float64(strings.Count(u, "%"))
	f["count_hash"] = float64(strings.Count(u, "#"))

	var digits, letters, special int
	for _, c := range u {
		switch {
		case unicode.IsDigit(c):
			digits++
		case unicode.IsLetter(c):
			letters++
		}
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			special++
		}
	}
	if n := len(u); n > 0 {
		f["ratio_digits"] = float64(digits) / float64(n)
		f["ratio_letters"] = float64(letters) / float64(n)
		f["ratio_special"] = float64(special) / float64(n)
	} else {
		f["ratio_digits"] = 0
		f["ratio_letters"] = 0
		f["ratio_special"] = 0
	}

	f["has_https"] = boolFeature(t.Scheme == "https")
	f["has_www"] = boolFeature(strings.Contains(t.Host, "www."))
	f["has_ip"] = boolFeature(ipv4Re.MatchString(t.Host))

	if t.Port != "" {
		f["has_port"] = 1
		f["is_standard_port"] = boolFeature(t.Port == "80" || t.Port == "443")
	} else {
		f["has_port"] = 0
		f["is_standard_port"] = 1
	}

	f["hex_chars_count"] = float64(len(hexRe.FindAllString(u, -1)))
	f["has_punycode"] = boolFeature(strings.Contains(t.Host, "xn--"))

	var pathParts []string
	for _, p := range strings.Split(t.Path, "/") {
		if p != "" {
			pathParts = append(pathParts, p)
		}
	}
	f["path_depth"] = float64(len(pathParts))
	hasExt := len(pathParts) > 0 && strings.Contains(pathParts[len(pathParts)-1], ".")
	f["has_file_extension"] = boolFeature(hasExt)

	params, err := url.ParseQuery(t.Query)
	if err != nil {
		f["query_param_count"] = 0
	} else {
		f["query_param_count"] = float64(len(params))
	}

	return f
}

func (LexicalExtractor) FeatureNames() []string {
	return []string{
		"url_length", "host_length", "path_length", "query_length", "fragment_length",
		"count_dots", "count_hyphens", "count_underscores", "count_slashes",
		"count_at_symbols", "count_question_marks", "count_equals", "count_ampersands",
		"count_percent", "count_hash", "ratio_digits", "ratio_letters", "ratio_special",
		"has_https", "has_www", "has_ip", "has_port", "is_standard_port",
		"hex_chars_count", "has_punycode", "path_depth", "has_file_extension",
		"query_param_count",
	}
}
