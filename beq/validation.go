package beq

import (
	"errors"
	"math/big"
)

var (
	ErrInvalidChain      = errors.New("invalid chain id")
	ErrInvalidToken      = errors.New("invalid token address")
	ErrInvalidSellAmount = errors.New("sell amount must be a positive integer string")
	ErrInvalidSlippage   = errors.New("slippage out of range")
	ErrSameToken         = errors.New("sell and buy token are identical")
	ErrProviderFilter    = errors.New("provider filter too large")
)

// ValidateRequest rejects malformed requests before any scoring happens.
// Anything that passes here is guaranteed to flow through the pipeline
// without further shape checks.
func ValidateRequest(req *QuoteRequest) error {
	if req.ChainID == 0 {
		return ErrInvalidChain
	}
	if isZeroAddress(req.SellToken) || isZeroAddress(req.BuyToken) {
		return ErrInvalidToken
	}
	if req.SellToken == req.BuyToken {
		return ErrSameToken
	}
	amount, ok := new(big.Int).SetString(req.SellAmount, 10)
	if !ok || amount.Sign() <= 0 {
		return ErrInvalidSellAmount
	}
	if req.SlippageBps > MaxSlippageBps {
		return ErrInvalidSlippage
	}
	if len(req.Providers) > MaxProviderFilter {
		return ErrProviderFilter
	}
	return nil
}

func isZeroAddress(a [20]byte) bool {
	for _, b := range a {
		if b != 0 {
			return false
		}
	}
	return true
}
