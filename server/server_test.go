package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishvet/detect"
	"phishvet/model"
)

type fixedPredictor struct {
	label       int
	probability float64
}

func (p fixedPredictor) Predict(_ detect.FeatureRecord, _ string) (int, *float64, error) {
	proba := p.probability
	return p.label, &proba, nil
}

func (p fixedPredictor) Explain(_ detect.FeatureRecord, _ string, _ int) []model.Attribution {
	return nil
}

func (p fixedPredictor) NumericColumns() []string {
	return []string{"url_length", "reputation_score"}
}

func testBundle(t *testing.T) *model.Bundle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.json")
	raw := `{
	  "metadata": {"model_type": "logistic_regression", "feature_count": 3, "training_score": 0.9},
	  "numeric_columns": ["url_length", "reputation_score"],
	  "vectorizer": {"vocabulary": {"login": 0}, "idf": [1.0]},
	  "model": {"kind": "logistic_regression", "coefficients": [0, 0, 0], "intercept": 0}
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	b, err := model.Load(path)
	require.NoError(t, err)
	return b
}

func newTestServer(pred detect.Predictor, bundle *model.Bundle) http.Handler {
	pipeline := detect.New(detect.DefaultLists(), pred, detect.Options{TopK: 3}, zerolog.Nop())
	return New(pipeline, bundle, zerolog.Nop()).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(fixedPredictor{}, nil)

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["model_loaded"])
}

func TestCheckWhitelisted(t *testing.T) {
	h := newTestServer(fixedPredictor{label: model.LabelPhishing, probability: 0.99}, testBundle(t))

	rec := doJSON(t, h, http.MethodPost, "/api/check", `{"url": "https://www.google.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var v detect.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, detect.VerdictLegitimate, v.Label)
	assert.Equal(t, "precheck", v.Source)
}

func TestCheckBadRequests(t *testing.T) {
	h := newTestServer(fixedPredictor{}, testBundle(t))

	rec := doJSON(t, h, http.MethodPost, "/api/check", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/check", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/check", `{"url": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckNoModel(t *testing.T) {
	h := newTestServer(nil, nil)

	// Needs the classifier, none loaded.
	rec := doJSON(t, h, http.MethodPost, "/api/check", `{"url": "http://example.org/page"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Definitive pre-check verdicts still answer.
	rec = doJSON(t, h, http.MethodPost, "/api/check", `{"url": "https://github.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBatch(t *testing.T) {
	h := newTestServer(fixedPredictor{label: model.LabelLegitimate, probability: 0.1}, testBundle(t))

	rec := doJSON(t, h, http.MethodPost, "/api/batch",
		`{"urls": ["https://www.google.com", "http://example.org/page"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res detect.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Legitimate)
}

func TestCheckExplainToggle(t *testing.T) {
	h := newTestServer(fixedPredictor{label: model.LabelLegitimate, probability: 0.1}, testBundle(t))

	rec := doJSON(t, h, http.MethodPost, "/api/check",
		`{"url": "http://example.org/page", "explain": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var v detect.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Empty(t, v.Explanations)
}

func TestBatchValidation(t *testing.T) {
	h := newTestServer(fixedPredictor{}, testBundle(t))

	rec := doJSON(t, h, http.MethodPost, "/api/batch", `{"urls": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	urls := make([]string, 101)
	for i := range urls {
		urls[i] = "http://example.org"
	}
	body, err := json.Marshal(map[string][]string{"urls": urls})
	require.NoError(t, err)
	rec = doJSON(t, h, http.MethodPost, "/api/batch", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelInfo(t *testing.T) {
	h := newTestServer(nil, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/model/info", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	bundle := testBundle(t)
	h = newTestServer(fixedPredictor{}, bundle)
	rec = doJSON(t, h, http.MethodGet, "/api/model/info", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "logistic_regression", info["model_type"])
}
