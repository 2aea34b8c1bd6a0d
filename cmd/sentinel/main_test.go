package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"crypto-sentinel/internal/app"
	"crypto-sentinel/internal/config"
	"crypto-sentinel/internal/domain"
	"crypto-sentinel/internal/pipeline"

	"github.com/shopspring/decimal"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type stubPrices struct{ err error }

func (s stubPrices) FetchSnapshot(context.Context) (domain.PriceSnapshot, error) {
	if s.err != nil {
		return domain.PriceSnapshot{}, s.err
	}
	return domain.PriceSnapshot{Symbol: "BTC", PriceUSD: decimal.NewFromInt(70000)}, nil
}

type stubPosts struct{}

func (stubPosts) Collect(context.Context, int) []domain.Post {
	return []domain.Post{{Text: "bitcoin moon", Source: "test"}}
}

type stubScorer struct{}

func (stubScorer) ScoreBatch(_ context.Context, texts []string) []domain.SentimentResult {
	out := make([]domain.SentimentResult, len(texts))
	for i := range texts {
		out[i] = domain.SentimentResult{PostRef: i, Polarity: 0.5, Label: domain.LabelPositive}
	}
	return out
}

type stubWriter struct{}

func (stubWriter) Write(_ context.Context, r domain.Report) (string, error) {
	return "reports/" + r.Filename(), nil
}

func stubCLIDeps(t *testing.T, priceErr error) *bytes.Buffer {
	t.Helper()
	origLoadEnv, origLoadConfig, origLogger := loadEnvFunc, loadConfigFunc, initLoggerFunc
	origTracer, origBuild, origStdout := initTracerFunc, buildAppFunc, stdout
	t.Cleanup(func() {
		loadEnvFunc, loadConfigFunc, initLoggerFunc = origLoadEnv, origLoadConfig, origLogger
		initTracerFunc, buildAppFunc, stdout = origTracer, origBuild, origStdout
	})

	out := &bytes.Buffer{}
	stdout = out
	loadEnvFunc = func(...string) error { return os.ErrNotExist }
	loadConfigFunc = func() *config.Config { return &config.Config{MaxPosts: 5, LogLevel: "error"} }
	initLoggerFunc = func(string) *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
	initTracerFunc = func(context.Context, string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	buildAppFunc = func(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (*app.App, error) {
		runner := pipeline.NewRunner(tracer, logger, pipeline.Deps{
			Prices: stubPrices{err: priceErr},
			Posts:  stubPosts{},
			Scorer: stubScorer{},
			Writer: stubWriter{},
		}, pipeline.Config{MaxPosts: cfg.MaxPosts})
		return &app.App{Runner: runner}, nil
	}
	return out
}

func TestRunSuccessPrintsSummary(t *testing.T) {
	out := stubCLIDeps(t, nil)

	if code := run(nil); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	text := out.String()
	for _, want := range []string{"OK", "$70000.00", "+0.5000", "crypto_sentinel_report_"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestRunFailureExitsNonZero(t *testing.T) {
	out := stubCLIDeps(t, errors.New("coingecko: upstream unavailable"))

	if code := run(nil); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "FAILED") || !strings.Contains(out.String(), "price: coingecko: upstream unavailable") {
		t.Fatalf("unexpected failure output:\n%s", out.String())
	}
}

func TestRunJSONOutput(t *testing.T) {
	out := stubCLIDeps(t, nil)

	if code := run([]string{"-json"}); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	var outcome domain.PipelineOutcome
	if err := json.Unmarshal(out.Bytes(), &outcome); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if !outcome.Success || outcome.PostsAnalyzed != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestRunBuildFailure(t *testing.T) {
	stubCLIDeps(t, nil)
	buildAppFunc = func(context.Context, *config.Config, trace.Tracer, *slog.Logger) (*app.App, error) {
		return nil, errors.New(`build post sources: unknown post source kind "ftp"`)
	}

	if code := run(nil); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	stubCLIDeps(t, nil)
	if code := run([]string{"-nope"}); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}
