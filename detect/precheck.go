package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Decision is the pre-checker's tri-state outcome.
type Decision string

const (
	DecisionLegitimate   Decision = "legitimate"
	DecisionMalicious    Decision = "malicious"
	DecisionSuspicious   Decision = "suspicious"
	DecisionInconclusive Decision = "inconclusive"
)

// Pre-check decision boundaries.
const (
	whitelistConfidence  = 0.95
	blacklistConfidence  = 0.98
	reputationConfidence = 0.95

	riskFactorWeight = 0.15
	riskFactorCap    = 0.6
	formatIssueRisk  = 0.3

	riskSuspiciousBound = 0.8
	riskLegitimateBound = 0.2
)

// PreCheckResult is the outcome of the fast deterministic pass. A definitive
// result is authoritative: curated lists outrank statistical inference, and
// the classifier is skipped entirely.
type PreCheckResult struct {
	Decision   Decision `json:"decision"`
	Definitive bool     `json:"definitive"`
	Confidence float64  `json:"confidence"`
	RiskScore  float64  `json:"risk_score"`

	// Reasons from curated lists and external reputation, in check order.
	Reasons []string `json:"reasons,omitempty"`

	// HeuristicFlags from the weighted scoring pass, in rule order.
	HeuristicFlags []string `json:"heuristic_flags,omitempty"`

	// FormatIssues are structural anomalies in the URL itself.
	FormatIssues []string `json:"format_issues,omitempty"`

	// RiskFactors is the raw weighted factor count; fusion uses it to tell
	// a corroborated classifier call from an unexplained one.
	RiskFactors int `json:"risk_factors"`
}

// PreChecker runs the fast deterministic rule pass. List checks run before
// heuristic scoring: a whitelist hit always wins even when heuristics would
// flag the same domain.
type PreChecker struct {
	Lists      *Lists
	Heuristics HeuristicExtractor

	// Reputation sources are consulted only when UseNetwork is set.
	Reputation []ReputationChecker
	UseNetwork bool
}

// Check runs the pre-check pass for one target.
func (p *PreChecker) Check(ctx context.Context, t *Target) *PreCheckResult {
	res := &PreCheckResult{Decision: DecisionInconclusive}
	res.FormatIssues = p.formatIssues(t)

	// 1. Whitelist: known legitimate, authoritative.
	if match := p.Lists.WhitelistMatch(t.Hostname); match != "" {
		res.Decision = DecisionLegitimate
		res.Definitive = true
		res.Confidence = whitelistConfidence
		res.RiskScore = 0.1
		res.Reasons = append(res.Reasons, "Known legitimate domain: "+match)
		return res
	}

	// 2. Blacklist: known malicious, authoritative.
	if p.Lists.IsBlacklisted(t.Hostname) {
		res.Decision = DecisionMalicious
		res.Definitive = true
		res.Confidence = blacklistConfidence
		res.RiskScore = 0.95
		res.Reasons = append(res.Reasons, "Known malicious domain")
		return res
	}

	// 3. External reputation sources, network mode only.
	if p.UseNetwork {
		host := t.BareHostname()
		for _, checker := range p.Reputation {
			if flagged, reason := checker.Check(ctx, host); flagged {
				res.Decision = DecisionMalicious
				res.Definitive = true
				res.Confidence = reputationConfidence
				res.RiskScore = 0.95
				res.Reasons = append(res.Reasons, reason)
				return res
			}
		}
	}

	// 4. Weighted heuristics.
	factors := p.scoreHeuristics(t, res)
	res.RiskFactors = factors

	risk := minFloat(float64(factors)*riskFactorWeight, riskFactorCap)
	if len(res.FormatIssues) > 0 {
		risk += formatIssueRisk
	}
	res.RiskScore = clamp01(risk)

	// A lean is advisory only (Definitive stays false); the classifier
	// remains authoritative for anything short of a list hit.
	switch {
	case res.RiskScore > riskSuspiciousBound:
		res.Decision = DecisionSuspicious
		res.Confidence = 0.7
	case res.RiskScore < riskLegitimateBound:
		res.Decision = DecisionLegitimate
		res.Confidence = 0.6
	}

	return res
}

func (p *PreChecker) formatIssues(t *Target) []string {
	var issues []string

	if ipv4Re.MatchString(t.Host) {
		issues = append(issues, "Uses IP address instead of domain")
	}
	for _, c := range []string{"@", "#"} {
		if strings.Contains(t.Host, c) {
			issues = append(issues, "Suspicious character in domain: "+c)
		}
	}
	if len(t.Normalized) > 200 {
		issues = append(issues, "Extremely long URL")
	}
	if strings.Count(t.Host, ".") > 4 {
		issues = append(issues, "Excessive subdomain levels")
	}
	if t.Port != "" && t.Port != "80" && t.Port != "443" {
		issues = append(issues, "Non-standard port: "+t.Port)
	}

	return issues
}

func (p *PreChecker) scoreHeuristics(t *Target, res *PreCheckResult) int {
	factors := 0
	host := t.Hostname
	urlLower := strings.ToLower(t.Normalized)

	if p.Lists.IsSuspiciousTLD(host) {
		res.HeuristicFlags = append(res.HeuristicFlags, "Uses suspicious TLD")
		factors += 2
	}

	if p.Lists.IsShortener(host) {
		res.HeuristicFlags = append(res.HeuristicFlags, "URL shortener detected")
		factors++
	}

	var keywords []string
	for _, tok := range p.Lists.SuspiciousKeywords {
		if strings.Contains(urlLower, tok) {
			keywords = append(keywords, tok)
		}
	}
	if len(keywords) > 0 {
		sort.Strings(keywords)
		res.HeuristicFlags = append(res.HeuristicFlags,
			fmt.Sprintf("Contains suspicious keywords: %s", strings.Join(keywords, ", ")))
		factors += len(keywords)
	}

	if brand := p.Heuristics.ImpersonatedBrand(t); brand != "" {
		res.HeuristicFlags = append(res.HeuristicFlags, "Potential brand abuse: "+brand)
		factors += 3
	}

	if p.Lists.MatchesTyposquat(host) {
		res.HeuristicFlags = append(res.HeuristicFlags, "Potential typosquatting detected")
		factors += 2
	}

	if t.Scheme != "https" {
		for _, word := range p.Lists.SensitiveKeywords {
			if strings.Contains(urlLower, word) {
				res.HeuristicFlags = append(res.HeuristicFlags, "No HTTPS for sensitive operations")
				factors++
				break
			}
		}
	}

	return factors
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
