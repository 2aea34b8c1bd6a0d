package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"crypto-sentinel/internal/domain"
)

const defaultUserAgent = "crypto-sentinel/1.0 (+https://github.com/crypto-sentinel/crypto-sentinel)"

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getBody performs a GET and returns the body of a 200 response. Every
// failure before a readable body is classified as upstream unavailable.
func getBody(ctx context.Context, client *http.Client, name, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", name, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: %w: status %d: %s", name, domain.ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: read body: %v", name, domain.ErrUpstreamUnavailable, err)
	}
	return body, nil
}

func malformed(name string, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", name, domain.ErrMalformedResponse, fmt.Sprintf(format, args...))
}
