package beq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testTx() *PendingTx {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	value := hexutil.Big(*hexutil.MustDecodeBig("0xde0b6b3a7640000"))
	return &PendingTx{
		From:  &from,
		To:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Data:  hexutil.MustDecode("0xabcdef01"),
		Value: &value,
	}
}

// newSimServer speaks just enough JSON-RPC for the preflight probes.
// When reverting is true both probes answer with an execution error.
func newSimServer(t *testing.T, reverting bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, []string{"eth_estimateGas", "eth_call"}, req.Method)
		require.NotEmpty(t, req.Params)

		if reverting {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%v,"error":{"code":3,"message":"execution reverted"}}`, req.ID)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%v,"result":"0x5208"}`, req.ID)
	}))
}

func newPreflightClient(quorum int, endpoints ...string) *QuorumPreflightClient {
	return NewQuorumPreflightClient(zap.NewNop(), QuorumPreflightConfig{
		Endpoints: endpoints,
		Quorum:    quorum,
		Timeout:   2 * time.Second,
	})
}

func TestPreflightAllOk(t *testing.T) {
	ok1 := newSimServer(t, false)
	defer ok1.Close()
	ok2 := newSimServer(t, false)
	defer ok2.Close()

	client := newPreflightClient(2, ok1.URL, ok2.URL)
	result := client.Preflight(context.Background(), testTx())
	require.True(t, result.Ok)
	require.Equal(t, 0.0, result.PRevert)
	require.Equal(t, 1.0, result.Confidence)
	require.Equal(t, []string{"quorum_all_ok"}, result.Reasons)
}

func TestPreflightAllFailed(t *testing.T) {
	bad := newSimServer(t, true)
	defer bad.Close()

	client := newPreflightClient(1, bad.URL)
	result := client.Preflight(context.Background(), testTx())
	require.False(t, result.Ok)
	require.Equal(t, 1.0, result.PRevert)
	require.Equal(t, 1.0, result.Confidence)
	require.Contains(t, result.Reasons, "quorum_all_failed")
	// per-endpoint reasons are namespaced by url
	require.Contains(t, result.Reasons[0], bad.URL+"#estimateGas_error:")
	require.Contains(t, result.Reasons[1], bad.URL+"#call_error:")
}

func TestPreflightMixedQuorum(t *testing.T) {
	ok1 := newSimServer(t, false)
	defer ok1.Close()
	ok2 := newSimServer(t, false)
	defer ok2.Close()
	bad := newSimServer(t, true)
	defer bad.Close()

	client := newPreflightClient(3, ok1.URL, ok2.URL, bad.URL)
	result := client.Preflight(context.Background(), testTx())
	require.True(t, result.Ok)
	require.InDelta(t, 1.0/3.0, result.PRevert, 1e-9)
	require.InDelta(t, 2.0/3.0, result.Confidence, 1e-9)
	require.Contains(t, result.Reasons, "quorum_mixed")
}

func TestPreflightEvenSplitIsNotOk(t *testing.T) {
	ok := newSimServer(t, false)
	defer ok.Close()
	bad := newSimServer(t, true)
	defer bad.Close()

	client := newPreflightClient(2, ok.URL, bad.URL)
	result := client.Preflight(context.Background(), testTx())
	// pRevert == 0.5 means no majority of clean simulations
	require.False(t, result.Ok)
	require.Equal(t, 0.5, result.PRevert)
	require.Equal(t, 0.5, result.Confidence)
}

func TestPreflightNoEndpoints(t *testing.T) {
	client := newPreflightClient(2)
	result := client.Preflight(context.Background(), testTx())
	require.True(t, result.Ok)
	require.Equal(t, 0.5, result.PRevert)
	require.Equal(t, 0.0, result.Confidence)
	require.Equal(t, []string{"rpc_not_configured"}, result.Reasons)
}

func TestPreflightQuorumUsesHeadOfList(t *testing.T) {
	ok := newSimServer(t, false)
	defer ok.Close()
	bad := newSimServer(t, true)
	defer bad.Close()

	// quorum of one only probes the first endpoint
	client := newPreflightClient(1, ok.URL, bad.URL)
	result := client.Preflight(context.Background(), testTx())
	require.True(t, result.Ok)
	require.Equal(t, 0.0, result.PRevert)
	require.Equal(t, 1.0, result.Confidence)
}

func TestNewCallArgs(t *testing.T) {
	args := newCallArgs(testTx())
	require.NotNil(t, args.From)
	require.Equal(t, "0x1111111111111111111111111111111111111111", *args.From)
	require.Equal(t, "0x2222222222222222222222222222222222222222", args.To)
	require.Equal(t, "0xabcdef01", args.Data)
	require.Equal(t, "0xde0b6b3a7640000", args.Value)

	minimal := newCallArgs(&PendingTx{To: common.HexToAddress("0x01")})
	require.Nil(t, minimal.From)
	require.Empty(t, minimal.Data)
	require.Empty(t, minimal.Value)
}
