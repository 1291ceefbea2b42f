package detect

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestAggregateMergeOrder(t *testing.T) {
	fragments := []FeatureRecord{
		{"a": 1, "shared": 10},
		{"b": 2, "shared": 20},
	}

	got := Aggregate(fragments, []string{"a", "b", "shared", "missing"})

	want := FeatureRecord{"a": 1, "b": 2, "shared": 20, "missing": -1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateClampsNonFinite(t *testing.T) {
	fragments := []FeatureRecord{
		{
			"nan":     math.NaN(),
			"pos_inf": math.Inf(1),
			"neg_inf": math.Inf(-1),
			"fine":    3.5,
		},
	}

	got := Aggregate(fragments, nil)

	assert.Equal(t, -1.0, got["nan"])
	assert.Equal(t, 999999.0, got["pos_inf"])
	assert.Equal(t, -999999.0, got["neg_inf"])
	assert.Equal(t, 3.5, got["fine"])

	for k, v := range got {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "non-finite value survived for %q", k)
	}
}

func TestAggregateEmptyFragments(t *testing.T) {
	got := Aggregate(nil, []string{"x", "y"})
	assert.Equal(t, FeatureRecord{"x": -1, "y": -1}, got)
}
