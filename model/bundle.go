// Package model loads the trained artifact bundle and adapts feature records
// into the exact vector shape the classifier was trained on. The bundle is
// produced offline by the training job; this package only performs inference.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Label values emitted by the classifier.
const (
	LabelLegitimate = 0
	LabelPhishing   = 1
)

// phishingThreshold is the probability above which a URL is labeled
// phishing. Deliberately above 0.5: the model errs on the side of
// "legitimate" and lets the heuristics catch what it misses.
const phishingThreshold = 0.7

// ErrBundleNotFound means no artifact bundle exists at the configured path.
var ErrBundleNotFound = errors.New("model bundle not found")

// Metadata describes the trained model, for the info endpoint.
type Metadata struct {
	ModelType     string  `json:"model_type"`
	FeatureCount  int     `json:"feature_count"`
	TrainingScore float64 `json:"training_score"`
	TrainedAt     string  `json:"trained_at,omitempty"`
}

type bundleFile struct {
	Metadata       Metadata        `json:"metadata"`
	NumericColumns []string        `json:"numeric_columns"`
	Scaler         *Scaler         `json:"scaler"`
	Vectorizer     *TFIDF          `json:"vectorizer"`
	Model          estimatorConfig `json:"model"`
}

type estimatorConfig struct {
	Kind         string            `json:"kind"`
	Coefficients []float64         `json:"coefficients,omitempty"`
	Intercept    float64           `json:"intercept,omitempty"`
	Estimators   []estimatorConfig `json:"estimators,omitempty"`
}

// Bundle holds every artifact needed for prediction, loaded once at process
// start and read-only afterwards. Capability flags are resolved here, at
// load time, never re-probed per request.
type Bundle struct {
	Meta           Metadata
	numericColumns []string
	scaler         *Scaler
	vectorizer     *TFIDF
	estimators     []linearEstimator

	// HasProbability is true when the model kind exposes a calibrated
	// probability. IsEnsemble is true for voting bundles; explanation uses
	// the first base estimator in that case.
	HasProbability bool
	IsEnsemble     bool
}

// Load reads and validates a bundle from disk. A missing file returns
// ErrBundleNotFound so callers can distinguish "not trained yet" from a
// corrupt artifact.
func Load(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, path)
		}
		return nil, fmt.Errorf("read bundle: %w", err)
	}

	var file bundleFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	return fromFile(&file)
}

func fromFile(file *bundleFile) (*Bundle, error) {
	if len(file.NumericColumns) == 0 {
		return nil, errors.New("bundle has no numeric columns")
	}
	if file.Vectorizer == nil {
		return nil, errors.New("bundle has no vectorizer")
	}
	if err := file.Vectorizer.validate(); err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}
	if file.Scaler != nil {
		if err := file.Scaler.validate(len(file.NumericColumns)); err != nil {
			return nil, fmt.Errorf("scaler: %w", err)
		}
	}

	b := &Bundle{
		Meta:           file.Metadata,
		numericColumns: file.NumericColumns,
		scaler:         file.Scaler,
		vectorizer:     file.Vectorizer,
	}

	dims := len(file.NumericColumns) + file.Vectorizer.Dims()

	switch file.Model.Kind {
	case "voting":
		if len(file.Model.Estimators) == 0 {
			return nil, errors.New("voting bundle has no estimators")
		}
		for _, cfg := range file.Model.Estimators {
			est, err := newLinearEstimator(cfg, dims)
			if err != nil {
				return nil, err
			}
			b.estimators = append(b.estimators, est)
		}
		b.IsEnsemble = true
		b.HasProbability = true
		for _, est := range b.estimators {
			if !est.hasProbability() {
				b.HasProbability = false
				break
			}
		}
	case "":
		return nil, errors.New("bundle has no model kind")
	default:
		est, err := newLinearEstimator(file.Model, dims)
		if err != nil {
			return nil, err
		}
		b.estimators = []linearEstimator{est}
		b.HasProbability = est.hasProbability()
	}

	return b, nil
}

// NumericColumns returns the trained numeric schema, in training order.
// Column order is part of the contract with the classifier: callers must
// never reorder it.
func (b *Bundle) NumericColumns() []string { return b.numericColumns }

// FeatureNames returns the concatenated numeric+text schema names, matching
// the vector layout Vectorize produces.
func (b *Bundle) FeatureNames() []string {
	names := make([]string, 0, len(b.numericColumns)+b.vectorizer.Dims())
	names = append(names, b.numericColumns...)
	names = append(names, b.vectorizer.TermNames()...)
	return names
}

// Info returns the bundle description for the model-info endpoint.
func (b *Bundle) Info() map[string]any {
	return map[string]any{
		"model_type":       b.Meta.ModelType,
		"feature_count":    b.Meta.FeatureCount,
		"training_score":   b.Meta.TrainingScore,
		"numeric_features": len(b.numericColumns),
		"text_features":    b.vectorizer.Dims(),
		"has_probability":  b.HasProbability,
		"is_ensemble":      b.IsEnsemble,
	}
}
