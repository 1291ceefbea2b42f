package detect

import (
	"context"
	"math"
	"regexp"
	"strings"
)

var (
	alphaTokenRe = regexp.MustCompile(`[a-zA-Z]+`)
	digitRunRe   = regexp.MustCompile(`\d+`)
)

// StatisticalExtractor derives text statistics from the URL string:
// entropy, character frequency, and token shape. Pure, no I/O.
type StatisticalExtractor struct{}

func (StatisticalExtractor) Name() string { return "statistical" }

func (StatisticalExtractor) Extract(_ context.Context, t *Target) FeatureRecord {
	u := t.Normalized
	f := FeatureRecord{}

	f["entropy_score"] = shannonEntropy(u)
	f["domain_entropy"] = shannonEntropy(t.Host)
	f["path_entropy"] = shannonEntropy(t.Path)

	freq := map[rune]int{}
	for _, c := range strings.ToLower(u) {
		freq[c]++
	}
	maxFreq := 0
	for _, n := range freq {
		if n > maxFreq {
			maxFreq = n
		}
	}
	f["most_frequent_char_count"] = float64(maxFreq)
	f["unique_char_count"] = float64(len(freq))
	denom := len(u)
	if denom == 0 {
		denom = 1
	}
	f["char_diversity"] = float64(len(freq)) / float64(denom)

	tokens := alphaTokenRe.FindAllString(u, -1)
	if len(tokens) > 0 {
		total, longest := 0, 0
		for _, tok := range tokens {
			total += len(tok)
			if len(tok) > longest {
				longest = len(tok)
			}
		}
		f["token_count"] = float64(len(tokens))
		f["avg_token_length"] = float64(total) / float64(len(tokens))
		f["max_token_length"] = float64(longest)
	} else {
		f["token_count"] = 0
		f["avg_token_length"] = 0
		f["max_token_length"] = 0
	}

	runs := digitRunRe.FindAllString(u, -1)
	f["digit_sequence_count"] = float64(len(runs))
	longestRun := 0
	for _, r := range runs {
		if len(r) > longestRun {
			longestRun = len(r)
		}
	}
	f["max_digit_sequence"] = float64(longestRun)

	return f
}

func (StatisticalExtractor) FeatureNames() []string {
	return []string{
		"entropy_score", "domain_entropy", "path_entropy",
		"most_frequent_char_count", "unique_char_count", "char_diversity",
		"token_count", "avg_token_length", "max_token_length",
		"digit_sequence_count", "max_digit_sequence",
	}
}

// shannonEntropy computes character-level Shannon entropy in bits.
// Zero-length input has entropy 0.
func shannonEntropy(text string) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	counts := map[rune]int{}
	total := 0
	for _, c := range lower {
		counts[c]++
		total++
	}
	entropy := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
