package model

import (
	"math"
	"sort"
)

// Attribution pairs a feature name with its signed contribution to the
// classifier's decision. Positive pushes toward phishing.
type Attribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Explain ranks which input features drove the decision for this record:
// per-feature contribution is coefficient times input value over the
// concatenated numeric+text schema. For an ensemble the first base estimator
// is used. Read-only and side-effect-free; any failure degrades to an empty
// list, never an error.
func (b *Bundle) Explain(features map[string]float64, normalizedURL string, topK int) []Attribution {
	if topK <= 0 || len(b.estimators) == 0 {
		return nil
	}

	vec, err := b.Vectorize(features, normalizedURL)
	if err != nil {
		return nil
	}

	est := b.estimators[0]
	if len(est.coef) != len(vec) {
		return nil
	}

	names := b.FeatureNames()
	contributions := make([]Attribution, 0, len(vec))
	for i, x := range vec {
		c := est.coef[i] * x
		if c == 0 {
			continue
		}
		contributions = append(contributions, Attribution{Feature: names[i], Value: c})
	}

	sort.Slice(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Value) > math.Abs(contributions[j].Value)
	})

	if len(contributions) > topK {
		contributions = contributions[:topK]
	}
	return contributions
}
