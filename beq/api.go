package beq

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dexray/beq-node/jsonrpcserver"
	"github.com/dexray/beq-node/metrics"
)

var (
	ErrNoProvidersSelected   = errors.New("no providers matched the request filter")
	ErrReceiptLookupDisabled = errors.New("receipt lookup is not configured")
	ErrInternalServiceError  = errors.New("beq service error")
)

// ReceiptStore serves beq_getReceipt lookups from the durable archive.
type ReceiptStore interface {
	GetReceipt(ctx context.Context, id string) (*DecisionReceipt, error)
}

// UsageTracker counts served requests per origin. Best effort only.
type UsageTracker interface {
	IncQuoteCount(ctx context.Context, origin string) (uint64, error)
}

// PriceSource supplies ambient pricing for the USD-denominated quote view.
type PriceSource interface {
	Prices(ctx context.Context, req *QuoteRequest) PriceContext
}

// StaticPriceSource answers every request with the same context. Used when no
// live price feed is wired in; zero values degrade to "0" USD estimates.
type StaticPriceSource struct {
	Context PriceContext
}

func (s StaticPriceSource) Prices(_ context.Context, _ *QuoteRequest) PriceContext {
	return s.Context
}

type API struct {
	log *zap.Logger

	registry    *Registry
	oracles     []SellabilityOracle
	preflight   PreflightClient
	engine      *ScoringEngine
	prices      PriceSource
	archive     *ArchiveQueue
	receipts    ReceiptStore
	usage       UsageTracker
	rateLimiter *rate.Limiter
}

func NewAPI(
	log *zap.Logger,
	registry *Registry, oracles []SellabilityOracle, preflight PreflightClient,
	engine *ScoringEngine, prices PriceSource, archive *ArchiveQueue, receipts ReceiptStore,
	usage UsageTracker, rateLimit rate.Limit,
) *API {
	return &API{
		log: log,

		registry:    registry,
		oracles:     oracles,
		preflight:   preflight,
		engine:      engine,
		prices:      prices,
		archive:     archive,
		receipts:    receipts,
		usage:       usage,
		rateLimiter: rate.NewLimiter(rateLimit, 1),
	}
}

type candidate struct {
	provider QuoteProvider
	quote    *RawQuote
}

// GetQuote runs the full decision pipeline for one swap intent: fan out to
// the selected providers, attach risk signals, score, rank, and archive the
// resulting receipt. The receipt is returned even when no provider produced
// an eligible quote; only malformed requests and internal faults error out.
func (m *API) GetQuote(ctx context.Context, req QuoteRequest) (_ *DecisionReceipt, err error) {
	logger := m.log
	startAt := time.Now()
	defer func() {
		metrics.RecordRPCCallDuration(GetQuoteEndpointName, time.Since(startAt).Milliseconds())
		if err != nil {
			metrics.IncRPCCallFailure(GetQuoteEndpointName)
		}
	}()
	metrics.IncQuotesReceived()

	if err := ValidateRequest(&req); err != nil {
		logger.Warn("Rejected quote request", zap.Error(err))
		return nil, err
	}
	if err := m.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	providers := m.registry.Select(req.Providers)
	if len(providers) == 0 {
		return nil, ErrNoProvidersSelected
	}

	candidates := m.fetchQuotes(ctx, providers, &req)
	sellability := m.assessSellability(ctx, &req)
	ranked := m.enrich(ctx, candidates, &req, sellability)

	result := Rank(ranked)
	m.attachDeepLinks(result.Quotes, providers, &req)

	warnings := collectWarnings(result.Quotes, m.registry.AllStubs())
	origin := jsonrpcserver.GetOrigin(ctx)
	receipt := BuildReceipt(&req, origin, result, warnings)
	m.archive.Enqueue(receipt)
	m.trackUsage(origin)

	metrics.IncQuotesServed()
	logger.Info("Quote request served",
		zap.String("receipt", receipt.ID),
		zap.Int("providers", len(providers)),
		zap.Int("quotes", len(result.Quotes)),
		zap.Int("disqualified", result.Summary.Disqualified))
	return receipt, nil
}

// GetReceipt replays a previously issued decision from the archive.
func (m *API) GetReceipt(ctx context.Context, id string) (_ *DecisionReceipt, err error) {
	startAt := time.Now()
	defer func() {
		metrics.RecordRPCCallDuration(GetReceiptEndpointName, time.Since(startAt).Milliseconds())
		if err != nil {
			metrics.IncRPCCallFailure(GetReceiptEndpointName)
		}
	}()

	if m.receipts == nil {
		return nil, ErrReceiptLookupDisabled
	}
	receipt, err := m.receipts.GetReceipt(ctx, id)
	if errors.Is(err, ErrReceiptNotFound) {
		return nil, err
	} else if err != nil {
		m.log.Error("Failed to load receipt", zap.Error(err), zap.String("receipt", id))
		return nil, ErrInternalServiceError
	}
	return receipt, nil
}

// trackUsage bumps the per-origin counter off the request path.
func (m *API) trackUsage(origin string) {
	if m.usage == nil || origin == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := m.usage.IncQuoteCount(ctx, origin); err != nil {
			m.log.Warn("Failed to track origin usage", zap.Error(err), zap.String("origin", origin))
		}
	}()
}

// fetchQuotes queries every selected provider concurrently, one timeout per
// provider. Failures are logged and dropped; a provider that cannot answer
// simply does not appear in the ranking.
func (m *API) fetchQuotes(ctx context.Context, providers []QuoteProvider, req *QuoteRequest) []candidate {
	quotes := make([]*RawQuote, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p QuoteProvider) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, DefaultProviderTimeout)
			defer cancel()

			startAt := time.Now()
			quote, err := p.Quote(callCtx, req)
			metrics.RecordProviderQuoteDuration(p.ID(), time.Since(startAt).Milliseconds())
			if err != nil {
				metrics.IncProviderQuoteFailure(p.ID())
				m.log.Warn("Provider quote failed", zap.Error(err), zap.String("provider", p.ID()))
				return
			}
			quotes[i] = quote
		}(i, p)
	}
	wg.Wait()

	candidates := make([]candidate, 0, len(providers))
	for i, quote := range quotes {
		if quote == nil {
			continue
		}
		candidates = append(candidates, candidate{provider: providers[i], quote: quote})
	}
	return candidates
}

// assessSellability asks every configured oracle about the buy token in
// parallel and merges the verdicts. The merged verdict is shared by all
// candidates since sellability is a token property, not a quote property.
func (m *API) assessSellability(ctx context.Context, req *QuoteRequest) *Verdict {
	if len(m.oracles) == 0 {
		return nil
	}

	verdicts := make([]*Verdict, len(m.oracles))
	var wg sync.WaitGroup
	for i, oracle := range m.oracles {
		wg.Add(1)
		go func(i int, oracle SellabilityOracle) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, DefaultOracleTimeout)
			defer cancel()
			verdicts[i] = oracle.AssessSellability(callCtx, req.ChainID, req.BuyToken)
		}(i, oracle)
	}
	wg.Wait()
	return MergeSellability(verdicts...)
}

// enrich attaches risk signals and scores to every candidate. Preflight runs
// per quote (transactions differ between providers) and only when the
// provider handed back a transaction to simulate.
func (m *API) enrich(ctx context.Context, candidates []candidate, req *QuoteRequest, sellability *Verdict) []RankedQuote {
	maxBuy := maxBuyAmount(candidates)
	prices := m.prices.Prices(ctx, req)

	ranked := make([]RankedQuote, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c candidate) {
			defer wg.Done()

			var preflight *PreflightResult
			if c.quote.Tx != nil && m.preflight != nil {
				preflight = m.preflight.Preflight(ctx, c.quote.Tx)
			}
			revert, mev, churn := deriveExecutionSignals(c.quote, req, c.provider.Source(), preflight)
			signals := RiskSignals{
				Sellability: sellability,
				RevertRisk:  revert,
				MevExposure: mev,
				Churn:       churn,
				Preflight:   preflight,
			}

			score := m.engine.Score(ScoreInput{
				ProviderID:            c.provider.ID(),
				BuyAmount:             c.quote.BuyAmountInt(),
				MaxBuyAmount:          maxBuy,
				IntegrationConfidence: c.provider.IntegrationConfidence(),
				Signals:               signals,
				Mode:                  req.Mode,
			})

			ranked[i] = RankedQuote{
				ProviderID:   c.provider.ID(),
				Source:       c.provider.Source(),
				Capabilities: c.provider.Capabilities(),
				Raw:          *c.quote,
				Normalized:   Normalize(c.quote, prices),
				Signals:      signals,
				Score:        score,
			}
		}(i, c)
	}
	wg.Wait()
	return ranked
}

// attachDeepLinks expands each provider's link template in place. A failed
// expansion drops the link, never the quote.
func (m *API) attachDeepLinks(quotes []RankedQuote, providers []QuoteProvider, req *QuoteRequest) {
	templates := make(map[string]string, len(providers))
	for _, p := range providers {
		templates[p.ID()] = p.DeepLinkTemplate()
	}

	for i := range quotes {
		template := templates[quotes[i].ProviderID]
		if template == "" {
			continue
		}
		link, err := BuildDeepLink(template, req)
		if err != nil {
			m.log.Warn("Failed to build deep link", zap.Error(err), zap.String("provider", quotes[i].ProviderID))
			continue
		}
		quotes[i].DeepLink = link
	}
}

func collectWarnings(quotes []RankedQuote, allStubs bool) []string {
	var warnings []string
	for _, q := range quotes {
		if !q.Capabilities.PricedQuotes {
			warnings = append(warnings, "deep_link_only:"+q.ProviderID)
		}
	}
	if allStubs {
		warnings = append(warnings, WarningStubOnly)
	}
	return warnings
}

func maxBuyAmount(candidates []candidate) *big.Int {
	var max *big.Int
	for _, c := range candidates {
		v := c.quote.BuyAmountInt()
		if max == nil || v.Cmp(max) > 0 {
			max = v
		}
	}
	return max
}
