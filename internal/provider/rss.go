package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RSSProvider reads one RSS 2.0 feed and keeps the items whose title or
// description mention one of the configured keywords.
type RSSProvider struct {
	client   *http.Client
	tracer   trace.Tracer
	feedURL  string
	keywords []string
}

func NewRSSProvider(tracer trace.Tracer, feedURL string, keywords []string, timeout time.Duration) *RSSProvider {
	return &RSSProvider{
		client:   newHTTPClient(timeout),
		tracer:   tracer,
		feedURL:  strings.TrimSpace(feedURL),
		keywords: keywords,
	}
}

func (p *RSSProvider) Name() string {
	return "rss:" + p.feedURL
}

func (p *RSSProvider) FetchPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	ctx, span := p.tracer.Start(ctx, "rss.fetch-posts")
	defer span.End()
	span.SetAttributes(attribute.String("feed_url", p.feedURL))

	if p.feedURL == "" {
		return nil, fmt.Errorf("rss: feed url is required")
	}
	if limit <= 0 {
		return nil, nil
	}

	body, err := getBody(ctx, p.client, "rss", p.feedURL, "application/rss+xml, application/xml, text/xml")
	if err != nil {
		return nil, err
	}

	var rss struct {
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				Title       string `xml:"title"`
				Link        string `xml:"link"`
				Description string `xml:"description"`
				PubDate     string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, malformed("rss", "decode rss payload: %v", err)
	}

	posts := make([]domain.Post, 0, min(limit, len(rss.Channel.Items)))
	for _, row := range rss.Channel.Items {
		if len(posts) >= limit {
			break
		}
		title := sanitizeText(row.Title, 300)
		if title == "" {
			continue
		}
		description := sanitizeText(htmlStrip(row.Description), 420)
		if !mentionsKeyword(title+" "+description, p.keywords) {
			continue
		}
		posts = append(posts, domain.Post{
			Text:        title,
			Description: description,
			Source:      "rss_feed",
			URL:         sanitizeText(row.Link, 500),
			PublishedAt: timePtr(parseRSSDate(row.PubDate)),
		})
	}

	span.SetAttributes(attribute.Int("posts", len(posts)))
	return posts, nil
}

func parseRSSDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func htmlStrip(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}
