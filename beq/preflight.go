package beq

import (
	"context"
	"fmt"
	"time"

	"github.com/ybbus/jsonrpc/v3"
	"go.uber.org/zap"

	"github.com/dexray/beq-node/metrics"
)

// PreflightClient estimates revert probability for a pending transaction by
// running the same simulation against a quorum of redundant RPC endpoints.
type PreflightClient interface {
	Preflight(ctx context.Context, tx *PendingTx) *PreflightResult
}

type QuorumPreflightConfig struct {
	Endpoints []string
	Quorum    int
	Timeout   time.Duration
}

type QuorumPreflightClient struct {
	log     *zap.Logger
	cfg     QuorumPreflightConfig
	clients []jsonrpc.RPCClient
}

func NewQuorumPreflightClient(log *zap.Logger, cfg QuorumPreflightConfig) *QuorumPreflightClient {
	clients := make([]jsonrpc.RPCClient, 0, len(cfg.Endpoints))
	for _, url := range cfg.Endpoints {
		clients = append(clients, jsonrpc.NewClient(url))
	}
	return &QuorumPreflightClient{log: log, cfg: cfg, clients: clients}
}

type callArgs struct {
	From  *string `json:"from,omitempty"`
	To    string  `json:"to"`
	Data  string  `json:"data,omitempty"`
	Value string  `json:"value,omitempty"`
}

func newCallArgs(tx *PendingTx) callArgs {
	args := callArgs{To: tx.To.Hex()}
	if tx.From != nil {
		from := tx.From.Hex()
		args.From = &from
	}
	if len(tx.Data) > 0 {
		args.Data = tx.Data.String()
	}
	if tx.Value != nil {
		args.Value = tx.Value.String()
	}
	return args
}

// Preflight queries up to min(quorum, len(endpoints)) endpoints from the head
// of the configured list (no randomization, for reproducibility) and merges
// the votes. An endpoint is ok only if both the gas estimate and the read
// call succeed.
func (c *QuorumPreflightClient) Preflight(ctx context.Context, tx *PendingTx) *PreflightResult {
	n := c.cfg.Quorum
	if n > len(c.clients) {
		n = len(c.clients)
	}
	if n <= 0 {
		return &PreflightResult{
			Ok:         true,
			PRevert:    0.5,
			Confidence: 0,
			Reasons:    []string{"rpc_not_configured"},
		}
	}

	args := newCallArgs(tx)
	failed := 0
	var reasons []string
	for i := 0; i < n; i++ {
		endpointReasons := c.probeEndpoint(ctx, c.clients[i], c.cfg.Endpoints[i], args)
		if len(endpointReasons) > 0 {
			failed++
			metrics.IncPreflightEndpointFailure()
			reasons = append(reasons, endpointReasons...)
		}
	}

	pRevert := float64(failed) / float64(n)
	agreeing := n - failed
	if failed > agreeing {
		agreeing = failed
	}
	confidence := float64(agreeing) / float64(n)

	switch {
	case failed == 0:
		reasons = append(reasons, "quorum_all_ok")
	case failed == n:
		reasons = append(reasons, "quorum_all_failed")
	default:
		reasons = append(reasons, "quorum_mixed")
	}

	result := &PreflightResult{
		Ok:         pRevert < 0.5,
		PRevert:    pRevert,
		Confidence: confidence,
		Reasons:    reasons,
	}
	c.log.Debug("Preflight quorum merged",
		zap.Int("endpoints", n), zap.Int("failed", failed),
		zap.Float64("p_revert", pRevert), zap.Float64("confidence", confidence))
	return result
}

// probeEndpoint runs the gas estimate and the read call sequentially against
// one endpoint. Returns per-attempt failure reasons namespaced by the
// endpoint URL, or nil if both attempts succeed.
func (c *QuorumPreflightClient) probeEndpoint(ctx context.Context, client jsonrpc.RPCClient, url string, args callArgs) []string {
	var reasons []string

	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if err := rpcCall(callCtx, client, "eth_estimateGas", args); err != nil {
		reasons = append(reasons, fmt.Sprintf("%s#estimateGas_error:%s", url, err))
	}
	if err := rpcCall(callCtx, client, "eth_call", args, "latest"); err != nil {
		reasons = append(reasons, fmt.Sprintf("%s#call_error:%s", url, err))
	}
	return reasons
}

func rpcCall(ctx context.Context, client jsonrpc.RPCClient, method string, params ...interface{}) error {
	res, err := client.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return res.Error
	}
	return nil
}
