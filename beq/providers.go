package beq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidProvider = errors.New("invalid provider specification")

// QuoteProvider is one liquidity source adapter. Quote returns the raw,
// unenriched answer; deep-link-only providers return a zero-amount quote.
type QuoteProvider interface {
	ID() string
	Source() SourceType
	Capabilities() Capabilities
	// IntegrationConfidence reflects historical quote accuracy, 0 = unknown.
	IntegrationConfidence() float64
	Quote(ctx context.Context, req *QuoteRequest) (*RawQuote, error)
	DeepLinkTemplate() string
}

type ProvidersConfig struct {
	Providers []struct {
		Name             string  `yaml:"name"`
		URL              string  `yaml:"url"`
		Category         string  `yaml:"category"`
		Confidence       float64 `yaml:"confidence"`
		DeepLinkTemplate string  `yaml:"deep_link_template"`
		Disabled         bool    `yaml:"disabled"`
	} `yaml:"providers"`
}

// LoadProviders parses the provider registry from a yaml file.
// Entries without a quote URL become deep-link-only stubs.
func LoadProviders(file string) (*Registry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var config ProvidersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	providers := make([]QuoteProvider, 0, len(config.Providers))
	for _, p := range config.Providers {
		if p.Disabled {
			continue
		}
		if p.Name == "" {
			return nil, ErrInvalidProvider
		}

		var source SourceType
		switch p.Category {
		case "dex":
			source = SourceDEX
		case "aggregator", "":
			source = SourceAggregator
		default:
			return nil, ErrInvalidProvider
		}

		if p.URL == "" {
			providers = append(providers, &StubProvider{
				Name:     p.Name,
				Category: source,
				Template: p.DeepLinkTemplate,
			})
			continue
		}
		providers = append(providers, &HTTPQuoteProvider{
			Name:       p.Name,
			Category:   source,
			URL:        p.URL,
			Confidence: p.Confidence,
			Template:   p.DeepLinkTemplate,
			Client:     &http.Client{Timeout: DefaultProviderTimeout},
		})
	}
	return NewRegistry(providers), nil
}

// Registry holds the enabled providers in a deterministic order.
type Registry struct {
	providers map[string]QuoteProvider
	order     []string
}

func NewRegistry(providers []QuoteProvider) *Registry {
	m := make(map[string]QuoteProvider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		if _, ok := m[p.ID()]; ok {
			continue
		}
		m[p.ID()] = p
		order = append(order, p.ID())
	}
	sort.Strings(order)
	return &Registry{providers: m, order: order}
}

// Select returns providers matching the request's allow-list (all enabled
// providers when the list is empty), in provider-id order.
func (r *Registry) Select(filter []string) []QuoteProvider {
	allowed := make(map[string]bool, len(filter))
	for _, id := range filter {
		allowed[strings.ToLower(id)] = true
	}

	selected := make([]QuoteProvider, 0, len(r.order))
	for _, id := range r.order {
		if len(filter) > 0 && !allowed[strings.ToLower(id)] {
			continue
		}
		selected = append(selected, r.providers[id])
	}
	return selected
}

// AllStubs reports whether no provider can return a priced quote.
func (r *Registry) AllStubs() bool {
	for _, id := range r.order {
		if r.providers[id].Capabilities().PricedQuotes {
			return false
		}
	}
	return len(r.order) > 0
}

// HTTPQuoteProvider adapts a REST quote endpoint. The endpoint receives the
// request as JSON and answers with a RawQuote-shaped body.
type HTTPQuoteProvider struct {
	Name       string
	Category   SourceType
	URL        string
	Confidence float64
	Template   string
	Client     *http.Client
}

func (p *HTTPQuoteProvider) ID() string                     { return p.Name }
func (p *HTTPQuoteProvider) Source() SourceType             { return p.Category }
func (p *HTTPQuoteProvider) IntegrationConfidence() float64 { return p.Confidence }
func (p *HTTPQuoteProvider) DeepLinkTemplate() string       { return p.Template }

func (p *HTTPQuoteProvider) Capabilities() Capabilities {
	return Capabilities{PricedQuotes: true, Transactions: true, DeepLink: p.Template != ""}
}

func (p *HTTPQuoteProvider) Quote(ctx context.Context, req *QuoteRequest) (*RawQuote, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider %s: unexpected status %d", p.Name, resp.StatusCode)
	}

	var quote RawQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// StubProvider cannot price a swap; it exists so the user can still be
// deep-linked to the venue. Its zero-amount quote ranks last by raw output.
type StubProvider struct {
	Name     string
	Category SourceType
	Template string
}

func (p *StubProvider) ID() string                     { return p.Name }
func (p *StubProvider) Source() SourceType             { return p.Category }
func (p *StubProvider) IntegrationConfidence() float64 { return 0 }
func (p *StubProvider) DeepLinkTemplate() string       { return p.Template }

func (p *StubProvider) Capabilities() Capabilities {
	return Capabilities{DeepLink: p.Template != ""}
}

func (p *StubProvider) Quote(_ context.Context, req *QuoteRequest) (*RawQuote, error) {
	return &RawQuote{SellAmount: req.SellAmount, BuyAmount: "0"}, nil
}
