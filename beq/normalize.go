package beq

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PriceContext carries the ambient pricing data used for the USD-denominated
// view. Zero values simply produce "0" estimates; normalization must never
// fail a ranking.
type PriceContext struct {
	GasPriceWei *big.Int
	NativeUSD   decimal.Decimal
	BuyTokenUSD decimal.Decimal
}

var weiPerEther = decimal.New(1, 18)

// Normalize derives the UI-facing view of a raw quote: buy amount, effective
// price (buy per sell, in base units) and USD gas/fee estimates.
func Normalize(raw *RawQuote, prices PriceContext) NormalizedQuote {
	buy := decimal.NewFromBigInt(raw.BuyAmountInt(), 0)

	sellInt, ok := new(big.Int).SetString(raw.SellAmount, 10)
	if !ok {
		sellInt = new(big.Int)
	}
	sell := decimal.NewFromBigInt(sellInt, 0)

	normalized := NormalizedQuote{
		BuyAmount:      buy.String(),
		EffectivePrice: "0",
		GasUSD:         "0",
		FeeUSD:         "0",
	}
	if sell.IsPositive() && buy.IsPositive() {
		normalized.EffectivePrice = buy.DivRound(sell, 18).String()
	}

	if raw.EstimatedGas > 0 && prices.GasPriceWei != nil && prices.NativeUSD.IsPositive() {
		gasWei := decimal.NewFromBigInt(prices.GasPriceWei, 0).Mul(decimal.NewFromInt(int64(raw.EstimatedGas)))
		normalized.GasUSD = gasWei.Div(weiPerEther).Mul(prices.NativeUSD).Round(4).String()
	}

	if raw.FeeBps > 0 && buy.IsPositive() && prices.BuyTokenUSD.IsPositive() {
		fee := buy.Mul(decimal.NewFromInt(int64(raw.FeeBps))).Div(decimal.NewFromInt(10000))
		normalized.FeeUSD = fee.Mul(prices.BuyTokenUSD).Round(4).String()
	}
	return normalized
}
