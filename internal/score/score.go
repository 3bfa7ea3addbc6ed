// Package score collapses normalized issues into a 0-100 health score and a
// tier. Classification is deterministic: the recommendation derives purely
// from the tier, never from individual issues.
package score

import "drive-health-check/pkg/types"

// Compute aggregates issue weights: 100 minus the sum of deductions, clamped
// to [0,100]. A report with no issues always scores 100.
func Compute(issues []types.Issue) int {
	score := 100
	for _, issue := range issues {
		score -= issue.SeverityDeduction
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TierFor maps a score to its classification band.
func TierFor(score int) types.Tier {
	switch {
	case score >= 90:
		return types.TierExcellent
	case score >= 75:
		return types.TierGood
	case score >= 50:
		return types.TierFair
	case score >= 25:
		return types.TierPoor
	default:
		return types.TierCritical
	}
}

// RecommendationFor returns the human guidance for a tier.
func RecommendationFor(tier types.Tier) string {
	switch tier {
	case types.TierExcellent:
		return "Excellent condition - suitable for all uses"
	case types.TierGood:
		return "Good condition - suitable for general use"
	case types.TierFair:
		return "Fair condition - usable with caution"
	case types.TierPoor:
		return "Poor condition - non-critical data only"
	default:
		return "Critical condition - not recommended for use"
	}
}
