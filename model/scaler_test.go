package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerTransform(t *testing.T) {
	s := &Scaler{Means: []float64{10, 0}, Scales: []float64{2, 0}}

	got := s.Transform([]float64{14, 5})

	// Standard transform for the first column; zero scale passes the
	// centered value through.
	assert.Equal(t, []float64{2, 5}, got)
}

func TestScalerDoesNotMutateInput(t *testing.T) {
	s := &Scaler{Means: []float64{1}, Scales: []float64{1}}
	in := []float64{5}
	_ = s.Transform(in)
	assert.Equal(t, []float64{5}, in)
}

func TestScalerValidate(t *testing.T) {
	s := &Scaler{Means: []float64{0, 0}, Scales: []float64{1, 1}}
	require.NoError(t, s.validate(2))
	require.Error(t, s.validate(3))
}
