// Package beq implements the quote decision engine of the node.
// Here is a full flow of data through the node:
//
// API receives a quote request:
//   - request is validated and hashed into a deterministic receipt id
//   - provider registry fans out raw quote fetches
//
// API -> oracles enrich every quote with risk signals
//
//	liquidity oracle -> sellability verdict (fail-uncertain)
//	honeypot oracle  -> sellability verdict (fail-open, may abstain)
//	preflight client -> quorum revert-probability estimate
//
// API -> ScoringEngine turns signals into a bounded BEQ score
// API -> RankingEngine orders quotes and picks the winners
// API -> DecisionReceipt is returned and archived asynchronously
package beq

import "time"

const (
	GetQuoteEndpointName   = "beq_getQuote"
	GetReceiptEndpointName = "beq_getReceipt"

	// MaxProviderFilter bounds the per-request provider allow-list.
	MaxProviderFilter = 32
	// MaxSlippageBps rejects obviously broken slippage settings.
	MaxSlippageBps = 5000

	DefaultOracleTimeout   = 1200 * time.Millisecond
	DefaultProviderTimeout = 2500 * time.Millisecond

	// DefaultVerdictCacheTTL bounds how long success verdicts live when no
	// TTL is configured; an unset TTL must never mean "cache forever".
	DefaultVerdictCacheTTL = 5 * time.Minute

	// Negative oracle outcomes are cached for a short time only so that
	// transient failures retry quickly instead of poisoning the cache.
	MalformedResponseTTLCap = 60 * time.Second
	TransportErrorTTLCap    = 30 * time.Second
)
