package beq

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHashDitOracle(serverURL string) *HashDitOracle {
	return NewHashDitOracle(zap.NewNop(), HashDitConfig{
		BaseURL:   serverURL,
		AppID:     "test-app",
		AppSecret: "test-secret",
		CacheTTL:  time.Minute,
	}, NewTTLCache[*Verdict]())
}

func newHashDitServer(t *testing.T, riskLevel string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, hashDitDetectPath, r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var decoded map[string]string
		require.NoError(t, json.Unmarshal(body, &decoded))
		require.Equal(t, "56", decoded["chain_id"])
		require.Equal(t, strings.ToLower(testToken.Hex()), decoded["address"])

		// verify the request is HMAC-signed the way the vendor expects
		msg := strings.Join([]string{
			r.Header.Get("X-Signature-appid"),
			r.Header.Get("X-Signature-timestamp"),
			r.Header.Get("X-Signature-nonce"),
			r.Method, r.URL.Path, string(body),
		}, ";")
		mac := hmac.New(sha256.New, []byte("test-secret"))
		mac.Write([]byte(msg))
		require.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-Signature-signature"))

		fmt.Fprintf(w, `{"status":"OK","data":{"risk_level":%s}}`, riskLevel)
	}))
}

func TestHashDitRiskLevels(t *testing.T) {
	testCases := map[string]struct {
		riskLevel      string
		expectedStatus SellabilityStatus
		expectedConf   float64
		expectedReason string
	}{
		"honeypot":       {"5", SellabilityFail, 0.95, "hashdit:honeypot"},
		"above honeypot": {"7", SellabilityFail, 0.95, "hashdit:honeypot"},
		"high risk":      {"4", SellabilityFail, 0.85, "hashdit:high_risk"},
		"risk level 3":   {"3", SellabilityUncertain, 0.75, "hashdit:risk_level:3"},
		"risk level 2":   {"2", SellabilityUncertain, 0.5, "hashdit:risk_level:2"},
		"low risk":       {"1", SellabilityOK, 0.9, "hashdit:low_risk"},
		"zero risk":      {"0", SellabilityOK, 0.9, "hashdit:low_risk"},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			server := newHashDitServer(t, testCase.riskLevel)
			defer server.Close()

			oracle := newHashDitOracle(server.URL)
			verdict := oracle.AssessSellability(context.Background(), 56, testToken)
			require.NotNil(t, verdict)
			require.Equal(t, testCase.expectedStatus, verdict.Status)
			require.Equal(t, testCase.expectedConf, verdict.Confidence)
			require.Equal(t, []string{testCase.expectedReason}, verdict.Reasons)
		})
	}
}

func TestHashDitFailsOpen(t *testing.T) {
	t.Run("disabled without credentials", func(t *testing.T) {
		oracle := NewHashDitOracle(zap.NewNop(), HashDitConfig{}, NewTTLCache[*Verdict]())
		require.Nil(t, oracle.AssessSellability(context.Background(), 56, testToken))
	})

	t.Run("unreachable", func(t *testing.T) {
		oracle := newHashDitOracle("http://127.0.0.1:1")
		require.Nil(t, oracle.AssessSellability(context.Background(), 56, testToken))
	})

	t.Run("bad status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()
		oracle := newHashDitOracle(server.URL)
		require.Nil(t, oracle.AssessSellability(context.Background(), 56, testToken))
	})

	t.Run("non-numeric risk level", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"OK","data":{"risk_level":"unknown"}}`))
		}))
		defer server.Close()
		oracle := newHashDitOracle(server.URL)
		require.Nil(t, oracle.AssessSellability(context.Background(), 56, testToken))
	})
}

func TestHashDitDefaultsCacheTTL(t *testing.T) {
	oracle := NewHashDitOracle(zap.NewNop(), HashDitConfig{
		BaseURL:   "http://127.0.0.1:1",
		AppID:     "test-app",
		AppSecret: "test-secret",
	}, NewTTLCache[*Verdict]())
	require.Equal(t, DefaultVerdictCacheTTL, oracle.cfg.CacheTTL)
}

func TestHashDitFailuresAreNotCached(t *testing.T) {
	healthy := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","data":{"risk_level":1}}`))
	}))
	defer server.Close()

	oracle := newHashDitOracle(server.URL)
	require.Nil(t, oracle.AssessSellability(context.Background(), 56, testToken))

	// the oracle recovers on the next request instead of serving a cached miss
	healthy = true
	verdict := oracle.AssessSellability(context.Background(), 56, testToken)
	require.NotNil(t, verdict)
	require.Equal(t, SellabilityOK, verdict.Status)
}
