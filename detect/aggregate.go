package detect

import "math"

// Sentinel replacements for non-finite values. The classifier adapter relies
// on the aggregator output containing no NaN or infinity.
const (
	sentinelMissing = -1
	sentinelPosInf  = 999999
	sentinelNegInf  = -999999
)

// Aggregate merges extractor fragments into one canonical feature record.
// Fragments are merged in call order: a later fragment wins when two
// extractors emit the same key, so the pipeline's extractor order is fixed
// and part of the schema contract. Every schema key missing from the merge
// is filled with the -1 sentinel, and every non-finite value is clamped,
// so the output is always finite and always schema-complete.
func Aggregate(fragments []FeatureRecord, schema []string) FeatureRecord {
	merged := FeatureRecord{}
	for _, frag := range fragments {
		for k, v := range frag {
			merged[k] = clampFinite(v)
		}
	}
	for _, col := range schema {
		if _, ok := merged[col]; !ok {
			merged[col] = sentinelMissing
		}
	}
	return merged
}

func clampFinite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return sentinelMissing
	case math.IsInf(v, 1):
		return sentinelPosInf
	case math.IsInf(v, -1):
		return sentinelNegInf
	default:
		return v
	}
}
