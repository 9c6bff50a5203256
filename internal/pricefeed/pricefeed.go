// Package pricefeed fetches the USD price of the native asset from a
// coingecko-style simple price endpoint.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/crisramb665/FundChain/internal/amount"
	"github.com/crisramb665/FundChain/internal/config"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Feed caches the last good quote. A zero price means unknown.
type Feed struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	maxAge  time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	price     decimal.Decimal
	updatedAt time.Time
}

func New(cfg config.PriceFeedConfig) *Feed {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	return &Feed{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		maxAge:  cfg.RefreshInterval,
		now:     time.Now,
	}
}

// simplePrice is {"ethereum":{"usd":1234.56}}.
type simplePrice map[string]map[string]decimal.Decimal

// Refresh fetches a new quote. The cached quote survives a failed refresh.
func (f *Feed) Refresh(ctx context.Context) error {
	if f.url == "" {
		return errors.New("price feed url not configured")
	}
	if !f.limiter.Allow() {
		return errors.New("price feed rate limited")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return errors.Wrap(err, "build price request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetch price")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetch price: status %d", resp.StatusCode)
	}

	var body simplePrice
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.Wrap(err, "decode price")
	}
	price, err := firstUSD(body)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.price = price
	f.updatedAt = f.now()
	f.mu.Unlock()
	logger.Debug("Native asset price updated: %s USD", price.String())
	return nil
}

func firstUSD(body simplePrice) (decimal.Decimal, error) {
	for coin, quotes := range body {
		usd, ok := quotes["usd"]
		if !ok {
			continue
		}
		if !usd.IsPositive() {
			return decimal.Zero, fmt.Errorf("non-positive %s price %s", coin, usd)
		}
		return usd, nil
	}
	return decimal.Zero, errors.New("price response carries no usd quote")
}

// Price returns the cached quote and when it was fetched.
func (f *Feed) Price() (decimal.Decimal, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.price, f.updatedAt
}

// Current returns the cached quote, refreshing it first when stale. Failures
// are logged and yield the last known price, which may be zero.
func (f *Feed) Current(ctx context.Context) decimal.Decimal {
	price, at := f.Price()
	if !at.IsZero() && (f.maxAge <= 0 || f.now().Sub(at) < f.maxAge) {
		return price
	}
	if err := f.Refresh(ctx); err != nil {
		logger.Warn("Price refresh failed: %v", err)
	}
	price, _ = f.Price()
	return price
}

// UnitPrice is the USD price of one whole unit of asset. USDC is pegged at 1.
func (f *Feed) UnitPrice(ctx context.Context, asset amount.Asset) decimal.Decimal {
	if asset.Token == amount.USDC.Token {
		return decimal.NewFromInt(1)
	}
	if !asset.IsNative() {
		return decimal.Zero
	}
	return f.Current(ctx)
}

// Estimate renders the USD value of baseUnits of asset, "0.00" when unknown.
func (f *Feed) Estimate(ctx context.Context, baseUnits string, asset amount.Asset) string {
	return amount.EstimateFiat(baseUnits, f.UnitPrice(ctx, asset), asset.Decimals)
}
