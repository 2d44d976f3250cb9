package beq

import (
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrInvalidExecutionMode = errors.New("invalid execution mode")

// ExecutionMode gates how aggressively risk signals discount a quote.
// Marshalled as a lowercase string.
type ExecutionMode uint8

const (
	ModeNormal ExecutionMode = iota
	ModeSafe
	ModeDegen
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeSafe:
		return "safe"
	case ModeDegen:
		return "degen"
	default:
		return "normal"
	}
}

func (m ExecutionMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *ExecutionMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "safe", "SAFE":
		*m = ModeSafe
	case "normal", "NORMAL", "":
		*m = ModeNormal
	case "degen", "DEGEN":
		*m = ModeDegen
	default:
		return ErrInvalidExecutionMode
	}
	return nil
}

// QuoteRequest is constructed once per user action and is immutable afterwards.
// SellAmount is an integer string in base units of the sell token.
type QuoteRequest struct {
	ChainID     uint64          `json:"chainId"`
	SellToken   common.Address  `json:"sellToken"`
	BuyToken    common.Address  `json:"buyToken"`
	SellAmount  string          `json:"sellAmount"`
	SlippageBps uint64          `json:"slippageBps"`
	Mode        ExecutionMode   `json:"mode"`
	Providers   []string        `json:"providers,omitempty"`
	Account     *common.Address `json:"account,omitempty"`
}

// PendingTx is the transaction shape a provider hands back for
// transaction-level preflight checks.
type PendingTx struct {
	From  *common.Address `json:"from,omitempty"`
	To    common.Address  `json:"to"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

// RawQuote is a single provider's unenriched answer.
// Amounts are integer strings in base units; deep-link-only providers quote "0".
type RawQuote struct {
	SellAmount   string     `json:"sellAmount"`
	BuyAmount    string     `json:"buyAmount"`
	EstimatedGas uint64     `json:"estimatedGas"`
	FeeBps       uint64     `json:"feeBps"`
	Route        []string   `json:"route,omitempty"`
	Tx           *PendingTx `json:"tx,omitempty"`
}

// BuyAmountInt parses the buy amount, treating anything unparsable as zero.
// Provider adapters are external input and malformed amounts must rank, not crash.
func (q *RawQuote) BuyAmountInt() *big.Int {
	v, ok := new(big.Int).SetString(q.BuyAmount, 10)
	if !ok || v.Sign() < 0 {
		return new(big.Int)
	}
	return v
}

type SellabilityStatus string

const (
	SellabilityOK        SellabilityStatus = "OK"
	SellabilityUncertain SellabilityStatus = "UNCERTAIN"
	SellabilityFail      SellabilityStatus = "FAIL"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Verdict is one oracle's opinion. Reasons must be non-empty whenever the
// status is anything but the most favorable value.
type Verdict struct {
	Status     SellabilityStatus `json:"status"`
	Confidence float64           `json:"confidence"`
	Reasons    []string          `json:"reasons"`
}

type LevelVerdict struct {
	Level      RiskLevel `json:"level"`
	Confidence float64   `json:"confidence"`
	Reasons    []string  `json:"reasons"`
}

// PreflightResult is the merged quorum vote. PRevert is a probability
// estimate, not ground truth: simulations that pass can still revert at
// execution and vice versa.
type PreflightResult struct {
	Ok         bool     `json:"ok"`
	PRevert    float64  `json:"pRevert"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// RiskSignals carries every independent verdict attached to one quote.
// Sellability and Preflight are nil when no oracle had an opinion.
type RiskSignals struct {
	Sellability *Verdict         `json:"sellability,omitempty"`
	RevertRisk  LevelVerdict     `json:"revertRisk"`
	MevExposure LevelVerdict     `json:"mevExposure"`
	Churn       LevelVerdict     `json:"churn"`
	Preflight   *PreflightResult `json:"preflight,omitempty"`
}

type ScoreBreakdown struct {
	BEQScore      float64  `json:"beqScore"`
	RawOutputRank int      `json:"rawOutputRank"`
	Disqualified  bool     `json:"disqualified"`
	Explanation   []string `json:"explanation"`
}

type SourceType string

const (
	SourceDEX        SourceType = "dex"
	SourceAggregator SourceType = "aggregator"
)

type Capabilities struct {
	PricedQuotes bool `json:"pricedQuotes"`
	Transactions bool `json:"transactions"`
	DeepLink     bool `json:"deepLink"`
}

// NormalizedQuote is the UI-facing view of a raw quote.
// Decimal strings to avoid float drift in consumers.
type NormalizedQuote struct {
	BuyAmount      string `json:"buyAmount"`
	EffectivePrice string `json:"effectivePrice"`
	GasUSD         string `json:"gasUsd"`
	FeeUSD         string `json:"feeUsd"`
}

type DeepLink struct {
	URL         string  `json:"url"`
	FallbackURL string  `json:"fallbackUrl,omitempty"`
	Confidence  float64 `json:"confidence"`
}

type RankedQuote struct {
	ProviderID   string          `json:"providerId"`
	Source       SourceType      `json:"source"`
	Capabilities Capabilities    `json:"capabilities"`
	Raw          RawQuote        `json:"raw"`
	Normalized   NormalizedQuote `json:"normalized"`
	Signals      RiskSignals     `json:"signals"`
	Score        ScoreBreakdown  `json:"score"`
	DeepLink     *DeepLink       `json:"deepLink,omitempty"`
}

type RankingRationale struct {
	Tags []string `json:"tags"`
}

// DecisionReceipt is the sole contract surface exposed downstream.
// Immutable once built; RankedQuotes is ordered by raw output.
type DecisionReceipt struct {
	ID                       string           `json:"id"`
	CreatedAt                time.Time        `json:"createdAt"`
	Request                  QuoteRequest     `json:"request"`
	Origin                   string           `json:"origin,omitempty"`
	BestExecutableProviderID *string          `json:"bestExecutableQuoteProviderId"`
	BestRawOutputProviderID  *string          `json:"bestRawOutputProviderId"`
	RankedQuotes             []RankedQuote    `json:"rankedQuotes"`
	Ranking                  RankingRationale `json:"ranking"`
	Warnings                 []string         `json:"warnings"`
}
