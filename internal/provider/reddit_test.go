package provider

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestRedditFetchPosts(t *testing.T) {
	p := NewRedditProvider(trace.NewNoopTracerProvider().Tracer("test"), "Bitcoin", []string{"bitcoin", "btc"}, time.Second)
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/r/Bitcoin/hot.json" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("limit") != "10" {
			t.Fatalf("expected over-fetch limit 10, got %s", req.URL.RawQuery)
		}
		if req.Header.Get("User-Agent") == "" {
			t.Fatalf("expected user-agent header")
		}
		body := `{"data":{"children":[
			{"data":{"id":"pin","title":"Daily discussion","stickied":true}},
			{"data":{"id":"abc123","title":"BTC breaks out","selftext":"Market is moving up","created_utc":1771009800,"permalink":"/r/Bitcoin/comments/abc123/post","url":"https://example.com/fallback"}},
			{"data":{"id":"empty","title":"  "}}
		]}}`
		return respond(http.StatusOK, body)(req)
	})}

	posts, err := p.FetchPosts(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	post := posts[0]
	if post.Source != "reddit" || post.Text != "BTC breaks out" || post.Description != "Market is moving up" {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.URL != "https://example.com/r/Bitcoin/comments/abc123/post" {
		t.Fatalf("unexpected permalink url: %s", post.URL)
	}
	if post.PublishedAt == nil || post.PublishedAt.Unix() != 1771009800 {
		t.Fatalf("unexpected published_at: %v", post.PublishedAt)
	}
}
