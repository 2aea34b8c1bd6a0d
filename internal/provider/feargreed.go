package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const fearGreedBaseURL = "https://api.alternative.me"

// FearGreedProvider reads the latest crypto Fear & Greed index.
type FearGreedProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewFearGreedProvider(tracer trace.Tracer, baseURL string, timeout time.Duration) *FearGreedProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = fearGreedBaseURL
	}
	return &FearGreedProvider{
		client:  newHTTPClient(timeout),
		baseURL: baseURL,
		tracer:  tracer,
	}
}

func (p *FearGreedProvider) FetchMood(ctx context.Context) (domain.MarketMood, error) {
	ctx, span := p.tracer.Start(ctx, "feargreed.fetch-mood")
	defer span.End()

	body, err := getBody(ctx, p.client, "feargreed", p.baseURL+"/fng/?limit=1", "application/json")
	if err != nil {
		return domain.MarketMood{}, err
	}

	var payload struct {
		Data []struct {
			Value           string `json:"value"`
			Classification  string `json:"value_classification"`
			Timestamp       string `json:"timestamp"`
			TimeUntilUpdate string `json:"time_until_update"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.MarketMood{}, malformed("feargreed", "decode response: %v", err)
	}
	if len(payload.Data) == 0 {
		return domain.MarketMood{}, malformed("feargreed", "response has no rows")
	}

	row := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(row.Value))
	if err != nil || value < 0 || value > 100 {
		return domain.MarketMood{}, malformed("feargreed", "invalid index value %q", row.Value)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(row.Timestamp), 10, 64)
	if err != nil {
		return domain.MarketMood{}, malformed("feargreed", "invalid timestamp %q", row.Timestamp)
	}
	// Some mirrors report milliseconds.
	if ts > 1_000_000_000_000 {
		ts /= 1000
	}
	next, _ := strconv.Atoi(strings.TrimSpace(row.TimeUntilUpdate))

	span.SetAttributes(attribute.Int("value", value))
	return domain.MarketMood{
		Value:          value,
		Classification: strings.TrimSpace(row.Classification),
		UpdatedAt:      time.Unix(ts, 0).UTC(),
		NextUpdateIn:   max(next, 0),
	}, nil
}
