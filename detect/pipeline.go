package detect

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"phishvet/model"
)

// batchConcurrency bounds how many URLs a batch request checks in parallel.
const batchConcurrency = 8

// Predictor is the classifier contract the pipeline depends on. *model.Bundle
// satisfies it; tests substitute stubs.
type Predictor interface {
	Predict(features FeatureRecord, normalizedURL string) (int, *float64, error)
	Explain(features FeatureRecord, normalizedURL string, topK int) []model.Attribution
	NumericColumns() []string
}

// Options configures a pipeline. CheckWith accepts a per-request copy, so
// individual requests can toggle the network and content stages.
type Options struct {
	// UseNetwork enables WHOIS, DNS, TLS and external reputation lookups.
	UseNetwork bool

	// UseContent enables page fetching and content analysis.
	UseContent bool

	// Render permits the headless-browser retry for dynamic pages. Only
	// meaningful with UseContent.
	Render bool

	// TopK is how many feature attributions to attach to classifier
	// verdicts. Zero disables explanations.
	TopK int

	// SafeBrowsingKey enables the Google Safe Browsing reputation source.
	SafeBrowsingKey string

	// DNSAddr is the resolver for RBL and record lookups, host:port.
	// Empty means the built-in default.
	DNSAddr string

	// Timeout bounds a single URL check end to end. Zero means no bound
	// beyond the caller's context.
	Timeout time.Duration
}

// Pipeline runs the full check for a URL: parse, pre-check, feature
// extraction, classification, fusion, explanation. Safe for concurrent use;
// all fields are read-only after New.
type Pipeline struct {
	lists     *Lists
	predictor Predictor
	schema    []string
	opts      Options
	log       zerolog.Logger
}

// New builds a pipeline over the given lists and classifier. A nil predictor
// is allowed; every check then fails with ErrClassifierUnavailable unless the
// pre-check is definitive.
func New(lists *Lists, predictor Predictor, opts Options, logger zerolog.Logger) *Pipeline {
	p := &Pipeline{
		lists:     lists,
		predictor: predictor,
		opts:      opts,
		log:       logger,
	}

	// The trained column schema is authoritative when a model is loaded;
	// otherwise the extractors' declared names serve.
	if predictor != nil {
		p.schema = predictor.NumericColumns()
	} else {
		for _, ext := range p.extractors(opts) {
			p.schema = append(p.schema, ext.FeatureNames()...)
		}
	}

	return p
}

// Options returns the pipeline's defaults, for callers applying per-request
// overrides.
func (p *Pipeline) Options() Options { return p.opts }

// extractors builds the stage list for one request. Order is fixed; the
// aggregator resolves key collisions by letting the later fragment win.
func (p *Pipeline) extractors(opts Options) []Extractor {
	return []Extractor{
		LexicalExtractor{},
		StatisticalExtractor{},
		HeuristicExtractor{Lists: p.lists},
		ListCheckExtractor{Lists: p.lists},
		DomainExtractor{UseNetwork: opts.UseNetwork, Resolver: opts.DNSAddr, Logger: p.log},
		ContentExtractor{UseContent: opts.UseContent, Render: opts.Render, Logger: p.log},
	}
}

func (p *Pipeline) prechecker(opts Options) *PreChecker {
	var reputation []ReputationChecker
	if opts.UseNetwork {
		reputation = []ReputationChecker{
			SafeBrowsingChecker{APIKey: opts.SafeBrowsingKey, Logger: p.log},
			RBLChecker{DNSAddr: opts.DNSAddr, Logger: p.log},
		}
	}
	return &PreChecker{
		Lists:      p.lists,
		Heuristics: HeuristicExtractor{Lists: p.lists},
		Reputation: reputation,
		UseNetwork: opts.UseNetwork,
	}
}

// Check runs the full pipeline for one URL with the pipeline's defaults.
func (p *Pipeline) Check(ctx context.Context, rawURL string) (*Verdict, error) {
	return p.CheckWith(ctx, rawURL, p.opts)
}

// CheckWith runs the full pipeline for one URL. A definitive pre-check
// verdict skips the classifier entirely. A classifier failure yields an
// undetermined verdict alongside a *PredictionError; the verdict is still
// usable.
func (p *Pipeline) CheckWith(ctx context.Context, rawURL string, opts Options) (*Verdict, error) {
	start := time.Now()

	t, err := ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	pre := p.prechecker(opts).Check(ctx, t)
	if pre.Definitive {
		v := fuse(t, pre, nil)
		v.ElapsedMS = time.Since(start).Milliseconds()
		p.logVerdict(v)
		return v, nil
	}

	features := p.extract(ctx, t, opts)

	if p.predictor == nil {
		pred := &prediction{Err: ErrClassifierUnavailable}
		v := fuse(t, pre, pred)
		v.ElapsedMS = time.Since(start).Milliseconds()
		return v, &PredictionError{URL: t.Normalized, Err: ErrClassifierUnavailable}
	}

	pred := &prediction{}
	pred.Label, pred.Probability, pred.Err = p.predictor.Predict(features, t.Normalized)

	v := fuse(t, pre, pred)
	if pred.Err == nil && opts.TopK > 0 {
		v.Explanations = p.predictor.Explain(features, t.Normalized, opts.TopK)
	}
	v.ElapsedMS = time.Since(start).Milliseconds()
	p.logVerdict(v)

	if pred.Err != nil {
		return v, &PredictionError{URL: t.Normalized, Err: pred.Err}
	}
	return v, nil
}

// extract runs every extractor concurrently and merges the fragments. Each
// fragment lands in its own slot, so merge order stays deterministic no
// matter which goroutine finishes first.
func (p *Pipeline) extract(ctx context.Context, t *Target, opts Options) FeatureRecord {
	extractors := p.extractors(opts)
	fragments := make([]FeatureRecord, len(extractors))

	g, gctx := errgroup.WithContext(ctx)
	for i, ext := range extractors {
		i, ext := i, ext
		g.Go(func() error {
			fragments[i] = ext.Extract(gctx, t)
			return nil
		})
	}
	g.Wait() // extractors degrade internally, never error

	return Aggregate(fragments, p.schema)
}

// BatchItem is the outcome for one URL of a batch. Error is set when the
// check failed; a failed prediction still carries its undetermined verdict.
type BatchItem struct {
	URL     string   `json:"url"`
	Verdict *Verdict `json:"verdict,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// BatchResult aggregates a batch run.
type BatchResult struct {
	Items     []BatchItem `json:"items"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`

	// Verdict label tallies over the successful items.
	Legitimate int `json:"legitimate"`
	Phishing   int `json:"phishing"`
}

// CheckBatch checks many URLs with the pipeline's defaults.
func (p *Pipeline) CheckBatch(ctx context.Context, urls []string) *BatchResult {
	return p.CheckBatchWith(ctx, urls, p.opts)
}

// CheckBatchWith checks many URLs with bounded parallelism. One URL failing
// never aborts the rest; results keep input order.
func (p *Pipeline) CheckBatchWith(ctx context.Context, urls []string, opts Options) *BatchResult {
	res := &BatchResult{
		Items: make([]BatchItem, len(urls)),
		Total: len(urls),
	}

	g := new(errgroup.Group)
	g.SetLimit(batchConcurrency)
	for i, raw := range urls {
		i, raw := i, raw
		g.Go(func() error {
			item := BatchItem{URL: raw}
			v, err := p.CheckWith(ctx, raw, opts)
			if err != nil {
				item.Error = err.Error()
			}
			item.Verdict = v
			res.Items[i] = item
			return nil
		})
	}
	g.Wait()

	for _, item := range res.Items {
		if item.Error != "" {
			res.Failed++
			continue
		}
		res.Succeeded++
		switch item.Verdict.Label {
		case VerdictLegitimate:
			res.Legitimate++
		case VerdictPhishing:
			res.Phishing++
		}
	}
	return res
}

func (p *Pipeline) logVerdict(v *Verdict) {
	p.log.Info().
		Str("url", v.URL).
		Str("label", v.Label).
		Str("source", v.Source).
		Float64("confidence", v.Confidence).
		Float64("risk_score", v.RiskScore).
		Int64("elapsed_ms", v.ElapsedMS).
		Msg("verdict")
}
