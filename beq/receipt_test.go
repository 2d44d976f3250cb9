package beq

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestReceiptIDDeterministic(t *testing.T) {
	req := validRequest()
	require.Equal(t, ReceiptID(&req), ReceiptID(&req))

	// provider allow-list order must not matter
	a := validRequest()
	a.Providers = []string{"uniswap", "odos", "kyberswap"}
	b := validRequest()
	b.Providers = []string{"kyberswap", "uniswap", "odos"}
	require.Equal(t, ReceiptID(&a), ReceiptID(&b))
}

func TestReceiptIDSensitivity(t *testing.T) {
	base := validRequest()
	baseID := ReceiptID(&base)

	testCases := map[string]func(req *QuoteRequest){
		"chain":     func(req *QuoteRequest) { req.ChainID = 1 },
		"sell":      func(req *QuoteRequest) { req.SellToken = common.HexToAddress("0x01") },
		"buy":       func(req *QuoteRequest) { req.BuyToken = common.HexToAddress("0x02") },
		"amount":    func(req *QuoteRequest) { req.SellAmount = "2" },
		"slippage":  func(req *QuoteRequest) { req.SlippageBps = 100 },
		"mode":      func(req *QuoteRequest) { req.Mode = ModeDegen },
		"providers": func(req *QuoteRequest) { req.Providers = []string{"odos"} },
		"account": func(req *QuoteRequest) {
			account := common.HexToAddress("0x03")
			req.Account = &account
		},
	}

	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			require.NotEqual(t, baseID, ReceiptID(&req))
		})
	}
}

func TestBuildReceipt(t *testing.T) {
	req := validRequest()

	winner := "odos"
	ranking := RankingResult{
		Quotes:                   []RankedQuote{rankedQuote("odos", "100", 50, false)},
		BestRawOutputProviderID:  &winner,
		BestExecutableProviderID: &winner,
		WinnerExplanation:        []string{"only eligible quote"},
	}

	receipt := BuildReceipt(&req, "wallet-app", ranking, []string{"deep_link_only:uniswap"})
	require.Equal(t, ReceiptID(&req), receipt.ID)
	require.Equal(t, "wallet-app", receipt.Origin)
	require.Equal(t, &winner, receipt.BestExecutableProviderID)
	require.Equal(t, []string{RationaleProvidersEnumerated, RationaleBEQWinnerFound, RationaleRawWinnerFound}, receipt.Ranking.Tags)
	require.Equal(t, []string{"deep_link_only:uniswap"}, receipt.Warnings)
	require.False(t, receipt.CreatedAt.IsZero())

	// no winners, no warnings
	receipt = BuildReceipt(&req, "", RankingResult{}, nil)
	require.Equal(t, []string{RationaleProvidersEnumerated, RationaleNoBEQWinner, RationaleNoRawWinner}, receipt.Ranking.Tags)
	require.NotNil(t, receipt.Warnings)
	require.Empty(t, receipt.Warnings)
}
