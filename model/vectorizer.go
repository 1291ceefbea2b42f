package model

import (
	"errors"
	"math"
	"regexp"
	"strings"
)

// tfidfTokenRe mirrors the trainer's token pattern: word characters, two or
// more in a row.
var tfidfTokenRe = regexp.MustCompile(`\w\w+`)

// TFIDF is the trained text vectorizer: a fixed vocabulary with per-term IDF
// weights. Transform is a pure function of the input string; the vocabulary
// and weights are read-only after load.
type TFIDF struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

func (v *TFIDF) validate() error {
	if len(v.Vocabulary) == 0 {
		return errors.New("empty vocabulary")
	}
	if len(v.IDF) != len(v.Vocabulary) {
		return errors.New("idf length does not match vocabulary size")
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return errors.New("vocabulary index out of range for term " + term)
		}
	}
	return nil
}

// Dims returns the width of the text block.
func (v *TFIDF) Dims() int { return len(v.IDF) }

// Transform maps text to its L2-normalized TF-IDF vector. Out-of-vocabulary
// tokens are dropped, matching the trained vectorizer's behavior.
func (v *TFIDF) Transform(text string) []float64 {
	out := make([]float64, len(v.IDF))

	tokens := tfidfTokenRe.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		if idx, ok := v.Vocabulary[tok]; ok {
			out[idx] += v.IDF[idx]
		}
	}

	var norm float64
	for _, x := range out {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range out {
			out[i] /= norm
		}
	}
	return out
}

// TermNames returns the vocabulary terms ordered by vector index.
func (v *TFIDF) TermNames() []string {
	names := make([]string, len(v.IDF))
	for term, idx := range v.Vocabulary {
		names[idx] = term
	}
	return names
}
