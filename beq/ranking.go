package beq

import (
	"fmt"
	"math/big"
	"sort"
)

const NoEligibleQuotesMessage = "No eligible quotes found"

// RankingSummary is diagnostic output only, never an input to the decision.
type RankingSummary struct {
	TotalQuotes     int     `json:"totalQuotes"`
	Disqualified    int     `json:"disqualified"`
	MaxRawBuyAmount string  `json:"maxRawBuyAmount"`
	MinBEQScore     float64 `json:"minBeqScore"`
	MaxBEQScore     float64 `json:"maxBeqScore"`
}

type RankingResult struct {
	// Quotes ordered by raw output, every entry carrying its RawOutputRank.
	Quotes []RankedQuote
	// BestRawOutputProviderID is nil when the top raw amount is zero.
	BestRawOutputProviderID *string
	// BestExecutableProviderID is nil when every quote was disqualified.
	BestExecutableProviderID *string
	WinnerExplanation        []string
	Summary                  RankingSummary
}

// Rank produces the two total orders over the quote set: raw output
// (risk-blind, includes disqualified quotes) and BEQ score (risk-adjusted,
// eligible quotes only). Both orders are deterministic via provider-id
// tie-breaks.
func Rank(quotes []RankedQuote) RankingResult {
	ordered := make([]RankedQuote, len(quotes))
	copy(ordered, quotes)

	// raw-output order: descending buy amount, ties by provider id ascending
	sort.SliceStable(ordered, func(i, j int) bool {
		cmp := ordered[i].Raw.BuyAmountInt().Cmp(ordered[j].Raw.BuyAmountInt())
		if cmp != 0 {
			return cmp > 0
		}
		return ordered[i].ProviderID < ordered[j].ProviderID
	})
	for i := range ordered {
		ordered[i].Score.RawOutputRank = i
	}

	result := RankingResult{Quotes: ordered}
	result.Summary = summarize(ordered)

	if len(ordered) > 0 && ordered[0].Raw.BuyAmountInt().Sign() > 0 {
		id := ordered[0].ProviderID
		result.BestRawOutputProviderID = &id
	}

	eligible := make([]RankedQuote, 0, len(ordered))
	for _, q := range ordered {
		if !q.Score.Disqualified {
			eligible = append(eligible, q)
		}
	}
	// BEQ order: descending score, then raw buy amount descending, then
	// provider id ascending
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score.BEQScore != eligible[j].Score.BEQScore {
			return eligible[i].Score.BEQScore > eligible[j].Score.BEQScore
		}
		cmp := eligible[i].Raw.BuyAmountInt().Cmp(eligible[j].Raw.BuyAmountInt())
		if cmp != 0 {
			return cmp > 0
		}
		return eligible[i].ProviderID < eligible[j].ProviderID
	})

	if len(eligible) == 0 {
		result.WinnerExplanation = []string{NoEligibleQuotesMessage}
		return result
	}

	winner := eligible[0]
	result.BestExecutableProviderID = &winner.ProviderID
	result.WinnerExplanation = append(result.WinnerExplanation, winner.Score.Explanation...)
	if len(eligible) > 1 {
		runnerUp := eligible[1]
		result.WinnerExplanation = append(result.WinnerExplanation,
			fmt.Sprintf("beats %s by %.2f points", runnerUp.ProviderID, winner.Score.BEQScore-runnerUp.Score.BEQScore))
	} else {
		result.WinnerExplanation = append(result.WinnerExplanation, "only eligible quote")
	}
	return result
}

func summarize(ordered []RankedQuote) RankingSummary {
	summary := RankingSummary{
		TotalQuotes:     len(ordered),
		MaxRawBuyAmount: "0",
	}
	if len(ordered) > 0 {
		summary.MaxRawBuyAmount = new(big.Int).Set(ordered[0].Raw.BuyAmountInt()).String()
	}

	first := true
	for _, q := range ordered {
		if q.Score.Disqualified {
			summary.Disqualified++
			continue
		}
		if first || q.Score.BEQScore < summary.MinBEQScore {
			summary.MinBEQScore = q.Score.BEQScore
		}
		if first || q.Score.BEQScore > summary.MaxBEQScore {
			summary.MaxBEQScore = q.Score.BEQScore
		}
		first = false
	}
	return summary
}
