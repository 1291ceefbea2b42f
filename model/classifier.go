package model

import (
	"errors"
	"fmt"
	"math"
)

type linearEstimator struct {
	kind      string
	coef      []float64
	intercept float64
}

func newLinearEstimator(cfg estimatorConfig, dims int) (linearEstimator, error) {
	switch cfg.Kind {
	case "logistic_regression", "linear_svc":
	default:
		return linearEstimator{}, fmt.Errorf("unsupported estimator kind %q", cfg.Kind)
	}
	if len(cfg.Coefficients) != dims {
		return linearEstimator{}, fmt.Errorf("estimator %q has %d coefficients, want %d",
			cfg.Kind, len(cfg.Coefficients), dims)
	}
	return linearEstimator{kind: cfg.Kind, coef: cfg.Coefficients, intercept: cfg.Intercept}, nil
}

func (m linearEstimator) hasProbability() bool { return m.kind == "logistic_regression" }

func (m linearEstimator) decision(x []float64) float64 {
	z := m.intercept
	for i, w := range m.coef {
		z += w * x[i]
	}
	return z
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

// Vectorize converts an aggregated feature record into the classifier's
// input: the numeric block in the trained column order (missing keys -> -1),
// standardized, then the TF-IDF block of the normalized URL. Column order is
// part of the contract with the trained model: it always comes from the
// stored schema, never from map iteration.
func (b *Bundle) Vectorize(features map[string]float64, normalizedURL string) ([]float64, error) {
	numeric := make([]float64, len(b.numericColumns))
	for i, col := range b.numericColumns {
		if v, ok := features[col]; ok {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("non-finite value for feature %q", col)
			}
			numeric[i] = v
		} else {
			numeric[i] = -1
		}
	}
	if b.scaler != nil {
		numeric = b.scaler.Transform(numeric)
	}

	text := b.vectorizer.Transform(normalizedURL)

	vec := make([]float64, 0, len(numeric)+len(text))
	vec = append(vec, numeric...)
	vec = append(vec, text...)
	return vec, nil
}

// Predict vectorizes the record and invokes the classifier. The returned
// probability is nil when the model kind exposes none; callers must treat a
// nil probability as unavailable rather than substituting a guess.
func (b *Bundle) Predict(features map[string]float64, normalizedURL string) (int, *float64, error) {
	if len(b.estimators) == 0 {
		return 0, nil, errors.New("bundle has no estimators")
	}

	vec, err := b.Vectorize(features, normalizedURL)
	if err != nil {
		return 0, nil, err
	}

	if !b.HasProbability {
		label := LabelLegitimate
		if b.estimators[0].decision(vec) > 0 {
			label = LabelPhishing
		}
		return label, nil, nil
	}

	// Soft vote: mean probability across estimators.
	var sum float64
	for _, est := range b.estimators {
		sum += sigmoid(est.decision(vec))
	}
	proba := sum / float64(len(b.estimators))

	label := LabelLegitimate
	if proba > phishingThreshold {
		label = LabelPhishing
	}
	return label, &proba, nil
}
