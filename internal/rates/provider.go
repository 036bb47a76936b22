package rates

// EXCHANGE RATES PROVIDER

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cargocalc-bot/internal/pricing"
	"cargocalc-bot/pkg/redis"

	"go.uber.org/zap"
)

const cacheKey = "rates:cny"

// Provider serves CNY→RUB/USD conversion factors to the calculator.
// Rates() itself never blocks: it returns the last known factors, which
// a background refresher keeps current from the CBR daily quotes.
type Provider struct {
	apiURL     string
	httpClient *http.Client
	redis      *redis.Client
	logger     *zap.Logger

	mu      sync.RWMutex
	current pricing.ExchangeRates
}

func NewProvider(apiURL string, timeout time.Duration, redisClient *redis.Client, fallback pricing.ExchangeRates, logger *zap.Logger) *Provider {
	return &Provider{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		redis:   redisClient,
		logger:  logger,
		current: fallback,
	}
}

// Rates returns the current conversion factors. Implements
// pricing.RateSource.
func (p *Provider) Rates() (pricing.ExchangeRates, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current.CNYToRUB <= 0 || p.current.CNYToUSD <= 0 {
		return pricing.ExchangeRates{}, fmt.Errorf("exchange rates unavailable")
	}
	return p.current, nil
}

// Refresh updates the factors: Redis cache first, then the CBR API.
// Failures keep the previous factors in place.
func (p *Provider) Refresh(ctx context.Context) error {
	if cached, err := p.redis.Get(ctx, cacheKey); err == nil {
		var rates pricing.ExchangeRates
		if err := json.Unmarshal(cached, &rates); err == nil && rates.CNYToRUB > 0 {
			p.set(rates)
			return nil
		}
	}

	rates, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}
	p.set(rates)

	if data, err := json.Marshal(rates); err == nil {
		if err := p.redis.Set(ctx, cacheKey, data, 1*time.Hour); err != nil {
			p.logger.Warn("Failed to cache exchange rates", zap.Error(err))
		}
	}
	return nil
}

// Run refreshes the rates periodically until the context is cancelled.
func (p *Provider) Run(ctx context.Context, period time.Duration) error {
	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn("Initial rates refresh failed, using fallback", zap.Error(err))
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn("Rates refresh failed", zap.Error(err))
			}
		}
	}
}

func (p *Provider) set(rates pricing.ExchangeRates) {
	p.mu.Lock()
	p.current = rates
	p.mu.Unlock()

	p.logger.Info("Exchange rates updated",
		zap.Float64("cny_rub", rates.CNYToRUB),
		zap.Float64("cny_usd", rates.CNYToUSD))
}

type cbrQuote struct {
	Nominal float64 `json:"Nominal"`
	Value   float64 `json:"Value"`
}

type cbrResponse struct {
	Valute map[string]cbrQuote `json:"Valute"`
}

func (p *Provider) fetch(ctx context.Context) (pricing.ExchangeRates, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.apiURL, nil)
	if err != nil {
		return pricing.ExchangeRates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return pricing.ExchangeRates{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pricing.ExchangeRates{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body cbrResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pricing.ExchangeRates{}, fmt.Errorf("decode response: %w", err)
	}

	cny, ok := body.Valute["CNY"]
	if !ok || cny.Nominal <= 0 {
		return pricing.ExchangeRates{}, fmt.Errorf("CNY quote missing in response")
	}
	usd, ok := body.Valute["USD"]
	if !ok || usd.Nominal <= 0 || usd.Value <= 0 {
		return pricing.ExchangeRates{}, fmt.Errorf("USD quote missing in response")
	}

	cnyToRUB := cny.Value / cny.Nominal
	usdToRUB := usd.Value / usd.Nominal

	return pricing.ExchangeRates{
		CNYToRUB: cnyToRUB,
		CNYToUSD: cnyToRUB / usdToRUB,
	}, nil
}
