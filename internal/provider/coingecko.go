package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crypto-sentinel/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches the Bitcoin market snapshot from the CoinGecko
// free API. It never retries; retry policy belongs to the caller.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
	now     func() time.Time
}

// NewCoinGeckoProvider creates a provider limited to 8 requests per minute.
func NewCoinGeckoProvider(tracer trace.Tracer, baseURL string, timeout time.Duration) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = coingeckoBaseURL
	}
	return &CoinGeckoProvider{
		client:  newHTTPClient(timeout),
		baseURL: baseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(8, 7500*time.Millisecond),
		now:     time.Now,
	}
}

// FetchSnapshot returns price, 24h volume, market cap and 24h change for
// Bitcoin in USD.
func (p *CoinGeckoProvider) FetchSnapshot(ctx context.Context) (domain.PriceSnapshot, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-snapshot")
	defer span.End()

	snap, err := p.fetchSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.PriceSnapshot{}, err
	}
	span.SetAttributes(attribute.String("price_usd", snap.PriceUSD.String()))
	return snap, nil
}

func (p *CoinGeckoProvider) fetchSnapshot(ctx context.Context) (domain.PriceSnapshot, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("coingecko: %w: rate limit wait: %v", domain.ErrUpstreamUnavailable, err)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true",
		p.baseURL, domain.CoinGeckoBitcoin, domain.CoinGeckoQuoteUSD)

	body, err := getBody(ctx, p.client, "coingecko", url, "application/json")
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	// Response shape: {"bitcoin": {"usd": 97000, "usd_market_cap": 1.9e12, "usd_24h_vol": 4.5e10, "usd_24h_change": 2.34}}
	var raw map[string]map[string]json.Number
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return domain.PriceSnapshot{}, malformed("coingecko", "decode prices: %v", err)
	}

	data, ok := raw[domain.CoinGeckoBitcoin]
	if !ok {
		return domain.PriceSnapshot{}, malformed("coingecko", "missing %q entry", domain.CoinGeckoBitcoin)
	}

	price, err := requiredDecimal(data, "usd")
	if err != nil {
		return domain.PriceSnapshot{}, malformed("coingecko", "%v", err)
	}
	if !price.IsPositive() {
		return domain.PriceSnapshot{}, malformed("coingecko", "non-positive price %s", price)
	}

	return domain.PriceSnapshot{
		Symbol:       domain.AssetBitcoin,
		PriceUSD:     price,
		VolumeUSD:    optionalDecimal(data, "usd_24h_vol"),
		MarketCapUSD: optionalDecimal(data, "usd_market_cap"),
		Change24hPct: optionalDecimal(data, "usd_24h_change"),
		FetchedAt:    p.now().UTC(),
	}, nil
}

func requiredDecimal(data map[string]json.Number, key string) (decimal.Decimal, error) {
	v, ok := data[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing field %q", key)
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("field %q: %v", key, err)
	}
	return d, nil
}

func optionalDecimal(data map[string]json.Number, key string) decimal.Decimal {
	d, err := requiredDecimal(data, key)
	if err != nil {
		return decimal.Zero
	}
	return d
}
