package metrics

import "drive-health-check/pkg/types"

// tierCode maps tiers onto an ordered numeric scale for alerting rules.
func tierCode(tier types.Tier) int {
	switch tier {
	case types.TierExcellent:
		return 4
	case types.TierGood:
		return 3
	case types.TierFair:
		return 2
	case types.TierPoor:
		return 1
	default:
		return 0
	}
}
