package beq

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoDeepLinkTemplate = errors.New("provider has no deep link template")

// BuildDeepLink expands a provider's URL template. Supported placeholders:
// {chain}, {sell}, {buy}, {amount}, {slippageBps}. Pure string templating;
// callers catch failures and omit the link, never abort ranking.
func BuildDeepLink(template string, req *QuoteRequest) (*DeepLink, error) {
	if template == "" {
		return nil, ErrNoDeepLinkTemplate
	}

	replacer := strings.NewReplacer(
		"{chain}", fmt.Sprintf("%d", req.ChainID),
		"{sell}", strings.ToLower(req.SellToken.Hex()),
		"{buy}", strings.ToLower(req.BuyToken.Hex()),
		"{amount}", req.SellAmount,
		"{slippageBps}", fmt.Sprintf("%d", req.SlippageBps),
	)
	url := replacer.Replace(template)
	if strings.ContainsAny(url, "{}") {
		return nil, fmt.Errorf("deep link template has unresolved placeholders: %s", template)
	}

	confidence := 0.9
	if strings.Contains(template, "{chain}") {
		// chain-qualified links are less likely to land on a wrong-network page
		confidence = 0.95
	}
	return &DeepLink{URL: url, Confidence: confidence}, nil
}
