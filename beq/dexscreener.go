package beq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dexray/beq-node/flight"
	"github.com/dexray/beq-node/metrics"
)

// chainSlugs maps EVM chain ids to DexScreener chain slugs.
// Chains missing here short-circuit to UNCERTAIN without a network call.
var chainSlugs = map[uint64]string{
	1:     "ethereum",
	10:    "optimism",
	56:    "bsc",
	137:   "polygon",
	8453:  "base",
	42161: "arbitrum",
	43114: "avalanche",
}

type dexScreenerPair struct {
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type DexScreenerConfig struct {
	BaseURL         string
	MinLiquidityUSD float64
	CacheTTL        time.Duration
	Timeout         time.Duration
}

// DexScreenerOracle assesses sellability from observed DEX pair liquidity.
// Successful verdicts are cached for the configured TTL; failures are cached
// briefly so a transient API change is not amplified across requests.
type DexScreenerOracle struct {
	log   *zap.Logger
	cfg   DexScreenerConfig
	cache *TTLCache[*Verdict]
	group *flight.Group[[]byte]
	http  *http.Client
}

func NewDexScreenerOracle(log *zap.Logger, cfg DexScreenerConfig, cache *TTLCache[*Verdict]) *DexScreenerOracle {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOracleTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultVerdictCacheTTL
	}
	o := &DexScreenerOracle{
		log:   log,
		cfg:   cfg,
		cache: cache,
		http:  &http.Client{Timeout: cfg.Timeout},
	}
	// dedupe concurrent fetches for the same token across requests,
	// cache the raw body only briefly so verdict TTL policy stays in charge
	o.group = flight.NewGroup[[]byte](o.fetchPairs, time.Second)
	return o
}

func (o *DexScreenerOracle) cacheKey(chainID uint64, token common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(token.Hex()))
}

func (o *DexScreenerOracle) AssessSellability(ctx context.Context, chainID uint64, token common.Address) *Verdict {
	slug, ok := chainSlugs[chainID]
	if !ok {
		return &Verdict{
			Status:     SellabilityUncertain,
			Confidence: 0.3,
			Reasons:    []string{"dexscreener:unsupported_chain"},
		}
	}

	key := o.cacheKey(chainID, token)
	if v, ok := o.cache.Get(key); ok {
		return v
	}

	body, err := o.group.Get(ctx, slug+"/"+strings.ToLower(token.Hex()))
	if err != nil {
		if ctx.Err() != nil {
			// the caller went away, not the oracle; the shared fetch keeps
			// running and nothing is written back for other callers
			return &Verdict{
				Status:     SellabilityUncertain,
				Confidence: 0.2,
				Reasons:    []string{"dexscreener:request_cancelled"},
			}
		}
		metrics.IncLiquidityOracleFailure("transport")
		o.log.Warn("Liquidity oracle unreachable", zap.Error(err), zap.String("token", token.Hex()))
		v := &Verdict{
			Status:     SellabilityUncertain,
			Confidence: 0.2,
			Reasons:    []string{"dexscreener:unreachable"},
		}
		o.cache.Put(key, v, capTTL(o.cfg.CacheTTL, TransportErrorTTLCap))
		return v
	}

	var pairs []dexScreenerPair
	if err := json.Unmarshal(body, &pairs); err != nil {
		metrics.IncLiquidityOracleFailure("malformed")
		o.log.Warn("Liquidity oracle returned malformed payload", zap.Error(err))
		v := &Verdict{
			Status:     SellabilityUncertain,
			Confidence: 0.25,
			Reasons:    []string{"dexscreener:malformed_response"},
		}
		o.cache.Put(key, v, capTTL(o.cfg.CacheTTL, MalformedResponseTTLCap))
		return v
	}

	v := o.verdictFromPairs(pairs)
	o.cache.Put(key, v, o.cfg.CacheTTL)
	return v
}

func (o *DexScreenerOracle) verdictFromPairs(pairs []dexScreenerPair) *Verdict {
	if len(pairs) == 0 {
		return &Verdict{
			Status:     SellabilityFail,
			Confidence: 0.85,
			Reasons:    []string{"dexscreener:no_pairs"},
		}
	}
	var maxLiquidity float64
	for _, p := range pairs {
		if p.Liquidity.USD > maxLiquidity {
			maxLiquidity = p.Liquidity.USD
		}
	}
	if maxLiquidity < o.cfg.MinLiquidityUSD {
		return &Verdict{
			Status:     SellabilityFail,
			Confidence: 0.85,
			Reasons: []string{
				"dexscreener:insufficient_liquidity",
				fmt.Sprintf("liquidity_usd:%.2f", maxLiquidity),
				fmt.Sprintf("min_liquidity_usd:%.2f", o.cfg.MinLiquidityUSD),
			},
		}
	}
	return &Verdict{
		Status:     SellabilityOK,
		Confidence: 0.8,
		Reasons:    []string{"dexscreener:liquidity_ok"},
	}
}

func (o *DexScreenerOracle) fetchPairs(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	url := strings.TrimSuffix(o.cfg.BaseURL, "/") + "/token-pairs/v1/" + key
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func capTTL(ttl, limit time.Duration) time.Duration {
	if ttl <= 0 || ttl > limit {
		return limit
	}
	return ttl
}
