package beq

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dexray/beq-node/metrics"
)

const hashDitDetectPath = "/security-api/public/app/v1/detect/token_security"

type HashDitConfig struct {
	BaseURL   string
	AppID     string
	AppSecret string
	CacheTTL  time.Duration
	Timeout   time.Duration
}

func (c HashDitConfig) enabled() bool {
	return c.BaseURL != "" && c.AppID != "" && c.AppSecret != ""
}

// HashDitOracle maps the vendor's numeric risk_level onto a sellability
// verdict. It fails open: transport errors, missing credentials and
// unparsable payloads all yield nil, and nothing negative is ever cached.
type HashDitOracle struct {
	log   *zap.Logger
	cfg   HashDitConfig
	cache *TTLCache[*Verdict]
	http  *http.Client
}

func NewHashDitOracle(log *zap.Logger, cfg HashDitConfig, cache *TTLCache[*Verdict]) *HashDitOracle {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOracleTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultVerdictCacheTTL
	}
	return &HashDitOracle{
		log:   log,
		cfg:   cfg,
		cache: cache,
		http:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (o *HashDitOracle) AssessSellability(ctx context.Context, chainID uint64, token common.Address) *Verdict {
	if !o.cfg.enabled() {
		return nil
	}

	key := strings.ToLower(token.Hex())
	if v, ok := o.cache.Get(key); ok {
		return v
	}

	level, err := o.fetchRiskLevel(ctx, chainID, token)
	if err != nil {
		metrics.IncHoneypotOracleFailure()
		o.log.Warn("Honeypot oracle failed, skipping", zap.Error(err), zap.String("token", token.Hex()))
		return nil
	}

	v := verdictFromRiskLevel(level)
	o.cache.Put(key, v, o.cfg.CacheTTL)
	return v
}

// verdictFromRiskLevel applies a monotonic, coarse mapping of the vendor scale.
func verdictFromRiskLevel(level int64) *Verdict {
	switch {
	case level >= 5:
		return &Verdict{Status: SellabilityFail, Confidence: 0.95, Reasons: []string{"hashdit:honeypot"}}
	case level == 4:
		return &Verdict{Status: SellabilityFail, Confidence: 0.85, Reasons: []string{"hashdit:high_risk"}}
	case level == 3:
		return &Verdict{Status: SellabilityUncertain, Confidence: 0.75, Reasons: []string{"hashdit:risk_level:3"}}
	case level == 2:
		return &Verdict{Status: SellabilityUncertain, Confidence: 0.5, Reasons: []string{"hashdit:risk_level:2"}}
	default:
		return &Verdict{Status: SellabilityOK, Confidence: 0.9, Reasons: []string{"hashdit:low_risk"}}
	}
}

type hashDitResponse struct {
	Status string `json:"status"`
	Data   struct {
		RiskLevel json.Number `json:"risk_level"`
	} `json:"data"`
}

func (o *HashDitOracle) fetchRiskLevel(ctx context.Context, chainID uint64, token common.Address) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"chain_id": strconv.FormatUint(chainID, 10),
		"address":  strings.ToLower(token.Hex()),
	})
	if err != nil {
		return 0, err
	}

	url := strings.TrimSuffix(o.cfg.BaseURL, "/") + hashDitDetectPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	o.signRequest(req, body)

	resp, err := o.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("hashdit: unexpected status %d", resp.StatusCode)
	}

	var decoded hashDitResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, err
	}
	if decoded.Status != "" && decoded.Status != "OK" {
		return 0, fmt.Errorf("hashdit: status %q", decoded.Status)
	}
	level, err := decoded.Data.RiskLevel.Int64()
	if err != nil {
		return 0, fmt.Errorf("hashdit: non-numeric risk_level %q", decoded.Data.RiskLevel)
	}
	return level, nil
}

// signRequest sets the vendor HMAC headers: the signature covers
// appId;timestamp;nonce;METHOD;path;body with the shared secret.
func (o *HashDitOracle) signRequest(req *http.Request, body []byte) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := newNonce()

	msg := strings.Join([]string{
		o.cfg.AppID, timestamp, nonce, req.Method, req.URL.Path, string(body),
	}, ";")
	mac := hmac.New(sha256.New, []byte(o.cfg.AppSecret))
	mac.Write([]byte(msg))

	req.Header.Set("X-Signature-appid", o.cfg.AppID)
	req.Header.Set("X-Signature-timestamp", timestamp)
	req.Header.Set("X-Signature-nonce", nonce)
	req.Header.Set("X-Signature-signature", hex.EncodeToString(mac.Sum(nil)))
}

func newNonce() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
