// Package exchange looks up currency exchange rates from a public rates API.
// Lookups never fail: any error degrades to a rate of 1.0.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

// DefaultURL serves {"rates": {...}} for the base currency appended to it.
const DefaultURL = "https://api.exchangerate-api.com/v4/latest"

var one = decimal.NewFromInt(1)

// Service fetches and caches exchange rates. Concurrent misses for the same
// pair share one upstream request.
type Service struct {
	baseURL string
	client  *http.Client
	rates   *cache.LRUCache[decimal.Decimal]
	group   singleflight.Group
}

func NewService(baseURL string, ttl, timeout time.Duration) *Service {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		rates:   cache.NewLRUCache[decimal.Decimal](32, ttl),
	}
}

// Cache exposes the rate cache so it can be registered with a janitor.
func (s *Service) Cache() *cache.LRUCache[decimal.Decimal] { return s.rates }

// Rate returns how many units of to one unit of from buys. Same-currency
// pairs are 1; so is every pair the upstream cannot answer.
func (s *Service) Rate(ctx context.Context, from, to core.Currency) decimal.Decimal {
	if from == to {
		return one
	}
	key := string(from) + ":" + string(to)
	if rate, ok := s.rates.Get(key); ok {
		return rate
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		rate, err := s.fetch(ctx, from, to)
		if err != nil {
			return nil, err
		}
		s.rates.Set(key, rate)
		return rate, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Exchange rate lookup failed, using 1.0",
			"from", from, "to", to, "error", err)
		return one
	}
	return v.(decimal.Decimal)
}

// Convert applies the current rate to amount.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to core.Currency) decimal.Decimal {
	return core.Round2(amount.Mul(s.Rate(ctx, from, to)))
}

type latestResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (s *Service) fetch(ctx context.Context, from, to core.Currency) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+string(from), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fetch rates: unexpected status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}
	rate, ok := body.Rates[string(to)]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("no %s rate for base %s", to, from)
	}
	return rate, nil
}
