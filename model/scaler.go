package model

import "errors"

// Scaler standardizes the numeric block with the means and scales captured
// at training time.
type Scaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
}

func (s *Scaler) validate(dims int) error {
	if len(s.Means) != dims || len(s.Scales) != dims {
		return errors.New("scaler dimensions do not match numeric columns")
	}
	return nil
}

// Transform standardizes in place-order: (x - mean) / scale. A zero scale
// passes the centered value through unscaled.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - s.Means[i]
		if s.Scales[i] != 0 {
			out[i] /= s.Scales[i]
		}
	}
	return out
}
