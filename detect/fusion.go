package detect

import (
	"fmt"

	"phishvet/model"
)

// Verdict labels.
const (
	VerdictLegitimate   = "legitimate"
	VerdictPhishing     = "phishing"
	VerdictUndetermined = "undetermined"
)

const (
	// overrideProbabilityBound: a classifier phishing call below this
	// probability, with zero corroborating heuristic factors, is treated as a
	// false positive and overridden to legitimate.
	overrideProbabilityBound = 0.9

	// fallbackConfidence applies when the model exposes no probability.
	fallbackConfidence = 0.5
)

// Verdict is the fused decision for one URL.
type Verdict struct {
	URL        string  `json:"url"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`

	// Probability is the classifier's phishing probability, nil when the
	// pre-check decided alone or the model kind exposes none.
	Probability *float64 `json:"probability,omitempty"`

	RiskScore float64  `json:"risk_score"`
	Reasons   []string `json:"reasons"`

	// Source records which stage decided: "precheck", "classifier" or
	// "override".
	Source string `json:"source"`

	Explanations []model.Attribution `json:"explanations,omitempty"`
	ElapsedMS    int64               `json:"elapsed_ms"`
}

// prediction carries the classifier stage's output into fusion. A non-nil
// Err means the stage failed; fusion must not guess a label in that case.
type prediction struct {
	Label       int
	Probability *float64
	Err         error
}

// fuse combines the pre-check result and the classifier output into a single
// verdict. Curated lists outrank the model; the model outranks soft
// heuristics; an uncorroborated low-probability phishing call is overridden.
func fuse(t *Target, pre *PreCheckResult, pred *prediction) *Verdict {
	v := &Verdict{URL: t.Normalized, RiskScore: pre.RiskScore}

	// 1. A definitive pre-check is authoritative; the classifier was never
	// invoked.
	if pre.Definitive {
		v.Source = "precheck"
		v.Confidence = pre.Confidence
		if pre.Decision == DecisionMalicious {
			v.Label = VerdictPhishing
		} else {
			v.Label = VerdictLegitimate
		}
		v.Reasons = assembleReasons(pre, v.Label, "")
		return v
	}

	// 2. Classifier failure: undetermined, never silently legitimate.
	if pred.Err != nil {
		v.Source = "classifier"
		v.Label = VerdictUndetermined
		v.Confidence = 0
		v.Reasons = assembleReasons(pre, v.Label, "Classifier unavailable for this URL")
		return v
	}

	// 3. Override: phishing call with no corroborating heuristic factor and
	// a probability short of certainty reads as a false positive.
	if pred.Label == model.LabelPhishing &&
		pre.RiskFactors == 0 && len(pre.FormatIssues) == 0 &&
		pred.Probability != nil && *pred.Probability < overrideProbabilityBound {
		v.Source = "override"
		v.Label = VerdictLegitimate
		v.Confidence = 0.6
		v.Probability = pred.Probability
		v.Reasons = assembleReasons(pre, v.Label,
			fmt.Sprintf("Model flagged at %.1f%% probability without corroborating indicators; overridden",
				*pred.Probability*100))
		return v
	}

	// 4. Accept the classifier.
	v.Source = "classifier"
	v.Probability = pred.Probability
	if pred.Label == model.LabelPhishing {
		v.Label = VerdictPhishing
	} else {
		v.Label = VerdictLegitimate
	}

	var statement string
	if pred.Probability != nil {
		p := *pred.Probability
		if v.Label == VerdictPhishing {
			v.Confidence = p
		} else {
			v.Confidence = 1 - p
		}
		if v.Confidence < fallbackConfidence {
			v.Confidence = fallbackConfidence
		}
		statement = fmt.Sprintf("Model prediction: %s (%.1f%% phishing probability)", v.Label, p*100)
	} else {
		v.Confidence = fallbackConfidence
		statement = "Model prediction: " + v.Label + " (no probability available)"
	}

	v.Reasons = assembleReasons(pre, v.Label, statement)
	return v
}

// assembleReasons builds the reason list in fixed order: list and reputation
// hits, heuristic flags, format issues, the classifier statement, then a
// closing recommendation.
func assembleReasons(pre *PreCheckResult, label, statement string) []string {
	reasons := make([]string, 0, len(pre.Reasons)+len(pre.HeuristicFlags)+len(pre.FormatIssues)+2)
	reasons = append(reasons, pre.Reasons...)
	reasons = append(reasons, pre.HeuristicFlags...)
	reasons = append(reasons, pre.FormatIssues...)
	if statement != "" {
		reasons = append(reasons, statement)
	}

	switch label {
	case VerdictPhishing:
		reasons = append(reasons, "Recommendation: do not visit this URL or enter credentials")
	case VerdictUndetermined:
		reasons = append(reasons, "Recommendation: treat with caution until re-checked")
	default:
		if len(pre.Reasons)+len(pre.HeuristicFlags)+len(pre.FormatIssues) == 0 {
			reasons = append(reasons, "No significant risk indicators found")
		}
	}
	return reasons
}
