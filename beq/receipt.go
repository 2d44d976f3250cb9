package beq

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

const (
	RationaleProvidersEnumerated = "providers_enumerated"
	RationaleBEQWinnerFound      = "beq_winner_found"
	RationaleNoBEQWinner         = "no_beq_winner"
	RationaleRawWinnerFound      = "raw_winner_found"
	RationaleNoRawWinner         = "no_raw_winner"

	WarningStubOnly = "stub_only_no_live_integrations"
)

// ReceiptID derives the receipt identifier from the canonicalized request
// content: sorted key=value lines, provider allow-list sorted, so two
// semantically identical requests hash the same regardless of construction
// order. This is the basis for upstream deduplication.
func ReceiptID(req *QuoteRequest) string {
	fields := map[string]string{
		"chainId":     fmt.Sprintf("%d", req.ChainID),
		"sellToken":   strings.ToLower(req.SellToken.Hex()),
		"buyToken":    strings.ToLower(req.BuyToken.Hex()),
		"sellAmount":  req.SellAmount,
		"slippageBps": fmt.Sprintf("%d", req.SlippageBps),
		"mode":        req.Mode.String(),
	}
	if req.Account != nil {
		fields["account"] = strings.ToLower(req.Account.Hex())
	}
	if len(req.Providers) > 0 {
		providers := append([]string(nil), req.Providers...)
		sort.Strings(providers)
		fields["providers"] = strings.Join(providers, ",")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hasher := sha3.NewLegacyKeccak256()
	for _, k := range keys {
		hasher.Write([]byte(k))
		hasher.Write([]byte{'='})
		hasher.Write([]byte(fields[k]))
		hasher.Write([]byte{'\n'})
	}
	return hexutil.Encode(hasher.Sum(nil))
}

// BuildReceipt assembles the immutable decision artifact out of a finished
// ranking pass. Warnings arrive from the pipeline (deep-link-only flags,
// stub-only registry) and are carried verbatim.
func BuildReceipt(req *QuoteRequest, origin string, ranking RankingResult, warnings []string) *DecisionReceipt {
	rationale := []string{RationaleProvidersEnumerated}
	if ranking.BestExecutableProviderID != nil {
		rationale = append(rationale, RationaleBEQWinnerFound)
	} else {
		rationale = append(rationale, RationaleNoBEQWinner)
	}
	if ranking.BestRawOutputProviderID != nil {
		rationale = append(rationale, RationaleRawWinnerFound)
	} else {
		rationale = append(rationale, RationaleNoRawWinner)
	}

	if warnings == nil {
		warnings = []string{}
	}
	return &DecisionReceipt{
		ID:                       ReceiptID(req),
		CreatedAt:                time.Now().UTC(),
		Request:                  *req,
		Origin:                   origin,
		BestExecutableProviderID: ranking.BestExecutableProviderID,
		BestRawOutputProviderID:  ranking.BestRawOutputProviderID,
		RankedQuotes:             ranking.Quotes,
		Ranking:                  RankingRationale{Tags: rationale},
		Warnings:                 warnings,
	}
}
