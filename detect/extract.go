package detect

import "context"

// FeatureRecord maps a feature name to its numeric value. Booleans are
// encoded as 0/1 by the extractors that produce them.
type FeatureRecord = map[string]float64

// Extractor produces one named fragment of the feature record. Extractors
// must never fail past their own boundary: any internal error (network
// timeout, parse problem) degrades to the extractor's documented default
// fragment so the schema shape never depends on extractor success.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Extract computes this extractor's feature fragment for the target.
	Extract(ctx context.Context, t *Target) FeatureRecord

	// FeatureNames lists every key Extract can emit, in a fixed order.
	FeatureNames() []string
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
