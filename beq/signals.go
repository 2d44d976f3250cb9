package beq

import "fmt"

// deriveExecutionSignals fills in the revert/mev/churn verdicts from what the
// pipeline already knows: the merged preflight vote, the requested slippage
// and the route shape. Deterministic and reason-tagged, so the same inputs
// always produce the same score.
func deriveExecutionSignals(quote *RawQuote, req *QuoteRequest, source SourceType, preflight *PreflightResult) (revert, mev, churn LevelVerdict) {
	revert = LevelVerdict{Level: RiskLow, Confidence: 0.5, Reasons: []string{"revert:no_preflight_data"}}
	if preflight != nil {
		switch {
		case preflight.PRevert >= 0.5:
			revert = LevelVerdict{Level: RiskHigh, Confidence: preflight.Confidence,
				Reasons: []string{fmt.Sprintf("revert:preflight_p_revert:%.2f", preflight.PRevert)}}
		case preflight.PRevert > 0:
			revert = LevelVerdict{Level: RiskMedium, Confidence: preflight.Confidence,
				Reasons: []string{fmt.Sprintf("revert:preflight_p_revert:%.2f", preflight.PRevert)}}
		default:
			revert = LevelVerdict{Level: RiskLow, Confidence: preflight.Confidence,
				Reasons: []string{"revert:preflight_clean"}}
		}
	}

	// wide slippage tolerance and long routes both widen the sandwich window
	hops := len(quote.Route)
	switch {
	case req.SlippageBps >= 300 || hops > 3:
		mev = LevelVerdict{Level: RiskHigh, Confidence: 0.7,
			Reasons: []string{fmt.Sprintf("mev:slippage_bps:%d", req.SlippageBps), fmt.Sprintf("mev:route_hops:%d", hops)}}
	case req.SlippageBps >= 100 || hops > 1:
		mev = LevelVerdict{Level: RiskMedium, Confidence: 0.6,
			Reasons: []string{fmt.Sprintf("mev:slippage_bps:%d", req.SlippageBps), fmt.Sprintf("mev:route_hops:%d", hops)}}
	default:
		mev = LevelVerdict{Level: RiskLow, Confidence: 0.6, Reasons: []string{"mev:tight_slippage_single_hop"}}
	}

	// aggregators re-route between quote and execution more often than a
	// single venue does
	if source == SourceAggregator {
		churn = LevelVerdict{Level: RiskMedium, Confidence: 0.55, Reasons: []string{"churn:aggregator_rerouting"}}
	} else {
		churn = LevelVerdict{Level: RiskLow, Confidence: 0.55, Reasons: []string{"churn:single_venue"}}
	}
	return revert, mev, churn
}
