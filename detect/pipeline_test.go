package detect

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishvet/model"
)

// stubPredictor counts invocations and returns a canned answer, so tests can
// assert whether the classifier stage ran at all.
type stubPredictor struct {
	calls       atomic.Int64
	label       int
	probability *float64
	err         error
	columns     []string
}

func (s *stubPredictor) Predict(_ FeatureRecord, _ string) (int, *float64, error) {
	s.calls.Add(1)
	return s.label, s.probability, s.err
}

func (s *stubPredictor) Explain(_ FeatureRecord, _ string, topK int) []model.Attribution {
	return []model.Attribution{{Feature: "url_length", Value: 0.4}}
}

func (s *stubPredictor) NumericColumns() []string {
	if s.columns != nil {
		return s.columns
	}
	return []string{"url_length", "has_https", "reputation_score"}
}

func newTestPipeline(pred Predictor) *Pipeline {
	return New(DefaultLists(), pred, Options{TopK: 3}, zerolog.Nop())
}

func TestPipelineWhitelistSkipsClassifier(t *testing.T) {
	stub := &stubPredictor{label: model.LabelPhishing}
	p := newTestPipeline(stub)

	v, err := p.Check(context.Background(), "https://www.google.com")
	require.NoError(t, err)

	assert.Equal(t, VerdictLegitimate, v.Label)
	assert.Equal(t, "precheck", v.Source)
	assert.Equal(t, int64(0), stub.calls.Load(), "classifier must not run on a definitive pre-check")
	assert.Empty(t, v.Explanations)
}

func TestPipelineBlacklistSkipsClassifier(t *testing.T) {
	stub := &stubPredictor{label: model.LabelLegitimate}
	p := newTestPipeline(stub)

	v, err := p.Check(context.Background(), "http://phishing-site.tk/login")
	require.NoError(t, err)

	assert.Equal(t, VerdictPhishing, v.Label)
	assert.Equal(t, int64(0), stub.calls.Load())
}

func TestPipelineClassifierPath(t *testing.T) {
	proba := 0.85
	stub := &stubPredictor{label: model.LabelPhishing, probability: &proba}
	p := newTestPipeline(stub)

	// Enough heuristic factors that the override rule stays out of the way.
	v, err := p.Check(context.Background(), "http://paypal-verify.tk/login")
	require.NoError(t, err)

	assert.Equal(t, VerdictPhishing, v.Label)
	assert.Equal(t, "classifier", v.Source)
	assert.Equal(t, int64(1), stub.calls.Load())
	require.NotNil(t, v.Probability)
	assert.Equal(t, 0.85, *v.Probability)
	assert.NotEmpty(t, v.Explanations)
}

func TestPipelinePredictionError(t *testing.T) {
	stub := &stubPredictor{err: errors.New("vectorize: bad input")}
	p := newTestPipeline(stub)

	v, err := p.Check(context.Background(), "http://example.org/page")
	require.Error(t, err)

	var perr *PredictionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, VerdictUndetermined, v.Label)
	assert.Empty(t, v.Explanations)
}

func TestPipelineMalformedURL(t *testing.T) {
	p := newTestPipeline(&stubPredictor{})

	_, err := p.Check(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedURL))
}

func TestPipelineNoPredictor(t *testing.T) {
	p := newTestPipeline(nil)

	// Definitive pre-check verdicts still work without a model.
	v, err := p.Check(context.Background(), "https://github.com")
	require.NoError(t, err)
	assert.Equal(t, VerdictLegitimate, v.Label)

	// Anything needing the classifier fails with the sentinel.
	v, err = p.Check(context.Background(), "http://example.org/page")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClassifierUnavailable))
	assert.Equal(t, VerdictUndetermined, v.Label)
}

func TestPipelineIdempotent(t *testing.T) {
	proba := 0.3
	p := newTestPipeline(&stubPredictor{label: model.LabelLegitimate, probability: &proba})

	first, err := p.Check(context.Background(), "http://example.org/some/path?x=1")
	require.NoError(t, err)
	second, err := p.Check(context.Background(), "http://example.org/some/path?x=1")
	require.NoError(t, err)

	// Identical except for timing.
	first.ElapsedMS = 0
	second.ElapsedMS = 0
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("verdicts differ between runs (-first +second):\n%s", diff)
	}
}

func TestPipelineBatch(t *testing.T) {
	proba := 0.2
	stub := &stubPredictor{label: model.LabelLegitimate, probability: &proba}
	p := newTestPipeline(stub)

	urls := []string{
		"https://www.google.com",
		"not a url at all ://",
		"http://example.org/page",
	}

	res := p.CheckBatch(context.Background(), urls)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Legitimate)
	assert.Equal(t, 0, res.Phishing)

	// Results keep input order.
	require.Len(t, res.Items, 3)
	assert.Equal(t, urls[0], res.Items[0].URL)
	assert.Equal(t, VerdictLegitimate, res.Items[0].Verdict.Label)
	assert.NotEmpty(t, res.Items[1].Error)
	assert.Nil(t, res.Items[1].Verdict)
	assert.Equal(t, VerdictLegitimate, res.Items[2].Verdict.Label)
}

// failFor wraps a stub and fails prediction for one specific URL.
type failFor struct {
	*stubPredictor
	substring string
}

func (f *failFor) Predict(features FeatureRecord, normalizedURL string) (int, *float64, error) {
	if strings.Contains(normalizedURL, f.substring) {
		return 0, nil, errors.New("vectorize: non-finite feature")
	}
	return f.stubPredictor.Predict(features, normalizedURL)
}

func TestPipelineBatchPredictionFailureIsolation(t *testing.T) {
	proba := 0.1
	pred := &failFor{
		stubPredictor: &stubPredictor{label: model.LabelLegitimate, probability: &proba},
		substring:     "second.example",
	}
	p := newTestPipeline(pred)

	res := p.CheckBatch(context.Background(), []string{
		"http://first.example/a",
		"http://second.example/b",
		"http://third.example/c",
	})

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)

	// The failed item carries the undetermined verdict plus its error.
	require.NotNil(t, res.Items[1].Verdict)
	assert.Equal(t, VerdictUndetermined, res.Items[1].Verdict.Label)
	assert.Contains(t, res.Items[1].Error, "prediction failed")

	// Neighbors are untouched.
	assert.Equal(t, VerdictLegitimate, res.Items[0].Verdict.Label)
	assert.Equal(t, VerdictLegitimate, res.Items[2].Verdict.Label)
}

func TestPipelinePerRequestOverrides(t *testing.T) {
	proba := 0.2
	p := newTestPipeline(&stubPredictor{label: model.LabelLegitimate, probability: &proba})

	opts := p.Options()
	opts.TopK = 0

	v, err := p.CheckWith(context.Background(), "http://example.org/page", opts)
	require.NoError(t, err)
	assert.Empty(t, v.Explanations)

	opts.TopK = 3
	v, err = p.CheckWith(context.Background(), "http://example.org/page", opts)
	require.NoError(t, err)
	assert.NotEmpty(t, v.Explanations)
}
