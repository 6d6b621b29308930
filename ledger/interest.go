package ledger

import (
	"github.com/thrylos-labs/postoken/amount"
	"github.com/thrylos-labs/postoken/types"
)

// interestRateFor walks the annual interest schedule and returns the
// rate covering yearsElapsed since stake start. Each tier spans Years
// consecutive years after the previous one; a tier with Years == 0 is
// open-ended and terminates the walk wherever it sits, so any years it
// would shadow never match. An exhausted schedule yields no rate.
func interestRateFor(tiers []types.InterestTier, yearsElapsed uint32) (amount.Asset, bool) {
	// The boundary accumulates in uint64: tier spans are unbounded uint32
	// values, and a wrapped sum would mismatch tiers.
	var y uint64
	for _, tier := range tiers {
		if tier.Years == 0 || y+uint64(tier.Years) > uint64(yearsElapsed) {
			return tier.InterestRate, true
		}
		y += uint64(tier.Years)
	}
	return amount.Asset{}, false
}
