package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL  = "https://www.reddit.com"
	redditMaxLimit = 100
)

// RedditProvider reads the hot listing of one subreddit.
type RedditProvider struct {
	client    *http.Client
	baseURL   string
	tracer    trace.Tracer
	subreddit string
	keywords  []string
}

func NewRedditProvider(tracer trace.Tracer, subreddit string, keywords []string, timeout time.Duration) *RedditProvider {
	return &RedditProvider{
		client:    newHTTPClient(timeout),
		baseURL:   redditBaseURL,
		tracer:    tracer,
		subreddit: strings.TrimSpace(subreddit),
		keywords:  keywords,
	}
}

func (p *RedditProvider) Name() string {
	return "reddit:" + p.subreddit
}

func (p *RedditProvider) FetchPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	ctx, span := p.tracer.Start(ctx, "reddit.fetch-posts")
	defer span.End()
	span.SetAttributes(attribute.String("subreddit", p.subreddit))

	if p.subreddit == "" {
		return nil, fmt.Errorf("reddit: subreddit is required")
	}
	if limit <= 0 {
		return nil, nil
	}

	// Over-fetch so keyword filtering still leaves enough candidates.
	fetch := min(limit*2, redditMaxLimit)
	base := strings.TrimRight(p.baseURL, "/")
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", base, url.PathEscape(p.subreddit), fetch)

	body, err := getBody(ctx, p.client, "reddit", u, "application/json")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					ID         string  `json:"id"`
					Title      string  `json:"title"`
					SelfText   string  `json:"selftext"`
					CreatedUTC float64 `json:"created_utc"`
					Permalink  string  `json:"permalink"`
					URL        string  `json:"url"`
					Stickied   bool    `json:"stickied"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed("reddit", "decode listing: %v", err)
	}

	posts := make([]domain.Post, 0, min(limit, len(payload.Data.Children)))
	for _, row := range payload.Data.Children {
		if len(posts) >= limit {
			break
		}
		data := row.Data
		if data.Stickied {
			continue
		}
		title := sanitizeText(data.Title, 300)
		if title == "" {
			continue
		}
		excerpt := sanitizeText(data.SelfText, 420)
		if !mentionsKeyword(title+" "+excerpt+" "+p.subreddit, p.keywords) {
			continue
		}
		itemURL := strings.TrimSpace(data.URL)
		if permalink := strings.TrimSpace(data.Permalink); permalink != "" {
			itemURL = base + permalink
		}
		var publishedAt *time.Time
		if data.CreatedUTC > 0 {
			publishedAt = timePtr(time.Unix(int64(data.CreatedUTC), 0).UTC())
		}
		posts = append(posts, domain.Post{
			Text:        title,
			Description: excerpt,
			Source:      "reddit",
			URL:         itemURL,
			PublishedAt: publishedAt,
		})
	}

	span.SetAttributes(attribute.Int("posts", len(posts)))
	return posts, nil
}
