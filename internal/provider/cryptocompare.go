package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const cryptoCompareNewsURL = "https://min-api.cryptocompare.com/data/v2/news/?lang=EN&sortOrder=latest&categories=BTC"

// CryptoCompareProvider reads the public CryptoCompare news endpoint. It is
// the alternative-API fallback when feeds are unavailable.
type CryptoCompareProvider struct {
	client   *http.Client
	tracer   trace.Tracer
	endpoint string
	keywords []string
}

func NewCryptoCompareProvider(tracer trace.Tracer, endpoint string, keywords []string, timeout time.Duration) *CryptoCompareProvider {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = cryptoCompareNewsURL
	}
	return &CryptoCompareProvider{
		client:   newHTTPClient(timeout),
		tracer:   tracer,
		endpoint: endpoint,
		keywords: keywords,
	}
}

func (p *CryptoCompareProvider) Name() string {
	return "cryptocompare:" + p.endpoint
}

func (p *CryptoCompareProvider) FetchPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	ctx, span := p.tracer.Start(ctx, "cryptocompare.fetch-posts")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}

	body, err := getBody(ctx, p.client, "cryptocompare", p.endpoint, "application/json")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Response string `json:"Response"`
		Message  string `json:"Message"`
		Data     []struct {
			Title       string `json:"title"`
			Body        string `json:"body"`
			URL         string `json:"url"`
			Categories  string `json:"categories"`
			PublishedOn int64  `json:"published_on"`
			Tags        string `json:"tags"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed("cryptocompare", "decode news: %v", err)
	}
	if strings.EqualFold(payload.Response, "Error") {
		return nil, malformed("cryptocompare", "api error: %s", payload.Message)
	}
	if payload.Data == nil {
		return nil, malformed("cryptocompare", "missing Data array")
	}

	posts := make([]domain.Post, 0, min(limit, len(payload.Data)))
	for _, row := range payload.Data {
		if len(posts) >= limit {
			break
		}
		title := sanitizeText(row.Title, 300)
		if title == "" {
			continue
		}
		description := sanitizeText(htmlStrip(row.Body), 400)
		if !mentionsKeyword(title+" "+description+" "+row.Categories+" "+row.Tags, p.keywords) {
			continue
		}
		var publishedAt *time.Time
		if row.PublishedOn > 0 {
			publishedAt = timePtr(time.Unix(row.PublishedOn, 0).UTC())
		}
		posts = append(posts, domain.Post{
			Text:        title,
			Description: description,
			Source:      "crypto_news",
			URL:         sanitizeText(row.URL, 500),
			PublishedAt: publishedAt,
		})
	}

	span.SetAttributes(attribute.Int("posts", len(posts)))
	return posts, nil
}
