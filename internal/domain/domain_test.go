package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestReportFilename(t *testing.T) {
	r := Report{CreatedAt: time.Date(2025, 11, 2, 10, 4, 5, 0, time.UTC)}
	if got := r.Filename(); got != "crypto_sentinel_report_20251102100405.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestReportFilenameUsesUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	r := Report{CreatedAt: time.Date(2025, 11, 2, 7, 0, 0, 0, loc)}
	if got := r.Filename(); got != "crypto_sentinel_report_20251102100000.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestErrorSentinelsWrap(t *testing.T) {
	err := fmt.Errorf("coingecko: %w: status 503", ErrUpstreamUnavailable)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected wrapped upstream error")
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("upstream error must not match malformed")
	}
}
