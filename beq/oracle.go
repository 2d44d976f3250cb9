package beq

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// SellabilityOracle answers whether a token can likely be sold back.
// A nil verdict means the oracle has no opinion (disabled, unsupported chain
// or hard failure) and must be skipped, never treated as a negative signal.
type SellabilityOracle interface {
	AssessSellability(ctx context.Context, chainID uint64, token common.Address) *Verdict
}

func sellabilityRank(s SellabilityStatus) int {
	switch s {
	case SellabilityFail:
		return 2
	case SellabilityUncertain:
		return 1
	default:
		return 0
	}
}

// MergeSellability combines independent oracle verdicts into one.
// The worse status wins; on equal status the more confident verdict wins.
// Reasons are concatenated in input order so the trail stays auditable.
func MergeSellability(verdicts ...*Verdict) *Verdict {
	var merged *Verdict
	var reasons []string
	for _, v := range verdicts {
		if v == nil {
			continue
		}
		reasons = append(reasons, v.Reasons...)
		if merged == nil {
			cp := *v
			merged = &cp
			continue
		}
		if sellabilityRank(v.Status) > sellabilityRank(merged.Status) ||
			(v.Status == merged.Status && v.Confidence > merged.Confidence) {
			cp := *v
			merged = &cp
		}
	}
	if merged == nil {
		return nil
	}
	merged.Reasons = reasons
	return merged
}
