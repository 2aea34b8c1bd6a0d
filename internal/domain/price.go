package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetBitcoin is the only asset the pipeline tracks.
const (
	AssetBitcoin      = "BTC"
	CoinGeckoBitcoin  = "bitcoin"
	CoinGeckoQuoteUSD = "usd"
)

// PriceSnapshot is an immutable point-in-time market reading for Bitcoin.
type PriceSnapshot struct {
	Symbol       string          `json:"symbol"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	VolumeUSD    decimal.Decimal `json:"volume_usd"`
	MarketCapUSD decimal.Decimal `json:"market_cap_usd"`
	Change24hPct decimal.Decimal `json:"change_24h_pct"`
	FetchedAt    time.Time       `json:"fetched_at"`
}

// MarketMood is the crypto Fear & Greed index reading (0 extreme fear,
// 100 extreme greed).
type MarketMood struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	UpdatedAt      time.Time `json:"updated_at"`
	NextUpdateIn   int       `json:"next_update_secs,omitempty"`
}
