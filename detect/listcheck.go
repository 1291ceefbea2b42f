package detect

import "context"

// Reputation lattice values. A discrete policy table, not a continuous
// function: each step reflects a category of evidence.
const (
	ReputationBlacklisted = 0.0
	ReputationPattern     = 0.3
	ReputationBadTLD      = 0.6
	ReputationClean       = 1.0
)

// ListCheckExtractor matches the host against the static blacklist and the
// suspicious host patterns, and assigns the discrete reputation score.
type ListCheckExtractor struct {
	Lists *Lists
}

func (ListCheckExtractor) Name() string { return "listcheck" }

func (e ListCheckExtractor) Extract(_ context.Context, t *Target) FeatureRecord {
	f := FeatureRecord{}
	host := t.Hostname

	blacklisted := e.Lists.IsBlacklisted(host)
	pattern := e.Lists.MatchesSuspiciousPattern(host)

	f["is_blacklisted"] = boolFeature(blacklisted)
	f["matches_suspicious_pattern"] = boolFeature(pattern)

	reputation := ReputationClean
	switch {
	case blacklisted:
		reputation = ReputationBlacklisted
	case pattern:
		reputation = ReputationPattern
	case e.Lists.IsSuspiciousTLD(host):
		reputation = ReputationBadTLD
	}
	f["reputation_score"] = reputation

	return f
}

func (ListCheckExtractor) FeatureNames() []string {
	return []string{"is_blacklisted", "matches_suspicious_pattern", "reputation_score"}
}
