package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crypto-sentinel/internal/collector"
	"crypto-sentinel/internal/domain"
	"crypto-sentinel/internal/report"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

var testStart = time.Date(2025, 11, 2, 14, 30, 5, 0, time.UTC)

type stubPrices struct {
	snap domain.PriceSnapshot
	err  error
}

func (s stubPrices) FetchSnapshot(ctx context.Context) (domain.PriceSnapshot, error) {
	return s.snap, s.err
}

type stubSource struct {
	name  string
	posts []domain.Post
	err   error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) FetchPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	return s.posts, s.err
}

type tableScorer map[string]float64

func (t tableScorer) ScoreBatch(ctx context.Context, texts []string) []domain.SentimentResult {
	out := make([]domain.SentimentResult, len(texts))
	for i, text := range texts {
		p := t[text]
		label := domain.LabelNeutral
		if p > 0.1 {
			label = domain.LabelPositive
		} else if p < -0.1 {
			label = domain.LabelNegative
		}
		out[i] = domain.SentimentResult{PostRef: i, Polarity: p, Label: label}
	}
	return out
}

type panicScorer struct{}

func (panicScorer) ScoreBatch(ctx context.Context, texts []string) []domain.SentimentResult {
	panic("scorer exploded")
}

type failingWriter struct{}

func (failingWriter) Write(ctx context.Context, rep domain.Report) (string, error) {
	return "", fmt.Errorf("report: %w: disk full", domain.ErrIOFailure)
}

type stubPublisher struct{ err error }

func (s stubPublisher) Publish(ctx context.Context, localPath string, createdAt time.Time) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "s3://bucket/" + filepath.Base(localPath), nil
}

type stubStore struct {
	runs []domain.RunRecord
	err  error
}

func (s *stubStore) InsertRun(ctx context.Context, run domain.RunRecord) (int64, error) {
	s.runs = append(s.runs, run)
	return int64(len(s.runs)), s.err
}

type stubNotifier struct {
	outcomes []domain.PipelineOutcome
	aggs     []domain.Aggregate
}

func (s *stubNotifier) NotifyRun(ctx context.Context, outcome domain.PipelineOutcome, agg domain.Aggregate) error {
	s.outcomes = append(s.outcomes, outcome)
	s.aggs = append(s.aggs, agg)
	return errors.New("telegram down")
}

var examplePosts = []domain.Post{
	{Text: "Bitcoin reaches new highs today", Source: "rss_feed"},
	{Text: "Bitcoin crash concerns investors", Source: "rss_feed"},
	{Text: "Bitcoin price analysis for today", Source: "rss_feed"},
}

var exampleScores = tableScorer{
	"Bitcoin reaches new highs today":  0.8,
	"Bitcoin crash concerns investors": -0.3,
	"Bitcoin price analysis for today": 0.0,
}

func examplePrice() domain.PriceSnapshot {
	return domain.PriceSnapshot{Symbol: "BTC", PriceUSD: decimal.NewFromInt(110407)}
}

func newTestRunner(deps Deps, sources ...collector.Source) *Runner {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if deps.Posts == nil {
		deps.Posts = collector.New(tracer, logger, sources, collector.Config{})
	}
	r := NewRunner(tracer, logger, deps, Config{MaxPosts: 20})
	r.now = func() time.Time { return testStart }
	return r
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestRunEndToEndExample(t *testing.T) {
	dir := t.TempDir()
	store := &stubStore{}
	r := newTestRunner(Deps{
		Prices:    stubPrices{snap: examplePrice()},
		Scorer:    exampleScores,
		Writer:    report.NewWriter(trace.NewNoopTracerProvider().Tracer("test"), dir),
		Publisher: stubPublisher{},
		Store:     store,
	}, stubSource{name: "rss", posts: examplePosts})

	out := r.Run(context.Background())
	if !out.Success || out.Error != "" {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.BTCPrice.String() != "110407" || *out.AvgSentiment != 0.1667 || out.PostsAnalyzed != 3 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.RunID != "20251102143005" || out.ReportURL != "s3://bucket/crypto_sentinel_report_20251102143005.csv" {
		t.Fatalf("unexpected run id or url: %+v", out)
	}

	lines := readLines(t, out.ReportPath)
	if len(lines) != 5 {
		t.Fatalf("expected header + 3 rows + summary, got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[4], "Análise de 3 posts | Pos: 33.3% | Neg: 33.3%") {
		t.Fatalf("unexpected summary row %q", lines[4])
	}

	if len(store.runs) != 1 || !store.runs[0].Success || store.runs[0].PctPositive != 33.3 {
		t.Fatalf("unexpected stored run %+v", store.runs)
	}
}

func TestRunPriceFailureWritesNoReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := newTestRunner(Deps{
		Prices: stubPrices{err: fmt.Errorf("coingecko: %w: status 503", domain.ErrUpstreamUnavailable)},
		Scorer: exampleScores,
		Writer: report.NewWriter(trace.NewNoopTracerProvider().Tracer("test"), dir),
	}, stubSource{name: "rss", posts: examplePosts})

	out := r.Run(context.Background())
	if out.Success {
		t.Fatalf("expected failure")
	}
	if !strings.HasPrefix(out.Error, "price: ") || !strings.Contains(out.Error, "upstream unavailable") {
		t.Fatalf("error should name the price stage, got %q", out.Error)
	}
	if out.BTCPrice != nil || out.AvgSentiment != nil || out.ReportPath != "" {
		t.Fatalf("failure outcome must not carry success fields: %+v", out)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("no report directory should be created, stat err=%v", err)
	}
}

func TestRunAllSourcesFailStillSucceeds(t *testing.T) {
	r := newTestRunner(Deps{
		Prices: stubPrices{snap: examplePrice()},
		Scorer: exampleScores,
		Writer: report.NewWriter(trace.NewNoopTracerProvider().Tracer("test"), t.TempDir()),
	},
		stubSource{name: "rss", err: domain.ErrUpstreamUnavailable},
		stubSource{name: "cryptocompare", err: domain.ErrMalformedResponse},
	)

	out := r.Run(context.Background())
	if !out.Success || *out.AvgSentiment != 0 || out.PostsAnalyzed != 0 {
		t.Fatalf("expected degraded success, got %+v", out)
	}
	lines := readLines(t, out.ReportPath)
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "RESUMO_20251102143005,") {
		t.Fatalf("expected header + summary row only, got %q", lines)
	}
}

func TestRunFallbackIsTransparent(t *testing.T) {
	r := newTestRunner(Deps{
		Prices: stubPrices{snap: examplePrice()},
		Scorer: exampleScores,
		Writer: report.NewWriter(trace.NewNoopTracerProvider().Tracer("test"), t.TempDir()),
	},
		stubSource{name: "rss", err: errors.New("remote error: tls: handshake failure")},
		stubSource{name: "cryptocompare", posts: examplePosts},
	)

	out := r.Run(context.Background())
	if !out.Success || out.PostsAnalyzed != 3 || *out.AvgSentiment != 0.1667 {
		t.Fatalf("expected fallback posts to be analysed, got %+v", out)
	}
}

func TestRunReportFailure(t *testing.T) {
	store := &stubStore{}
	notifier := &stubNotifier{}
	r := newTestRunner(Deps{
		Prices:   stubPrices{snap: examplePrice()},
		Scorer:   exampleScores,
		Writer:   failingWriter{},
		Store:    store,
		Notifier: notifier,
	}, stubSource{name: "rss", posts: examplePosts})

	out := r.Run(context.Background())
	if out.Success || !strings.HasPrefix(out.Error, "report: ") {
		t.Fatalf("expected report stage failure, got %+v", out)
	}
	if out.BTCPrice != nil {
		t.Fatalf("no partial outcome expected, got %+v", out)
	}
	if len(store.runs) != 1 || store.runs[0].Success || store.runs[0].Error == "" {
		t.Fatalf("failed run should be recorded, got %+v", store.runs)
	}
	if len(notifier.outcomes) != 1 || notifier.aggs[0].Count != 0 {
		t.Fatalf("expected failure notification without aggregate, got %+v", notifier.aggs)
	}
}

func TestRunSideEffectFailuresAreNonFatal(t *testing.T) {
	notifier := &stubNotifier{}
	r := newTestRunner(Deps{
		Prices:    stubPrices{snap: examplePrice()},
		Scorer:    exampleScores,
		Writer:    report.NewWriter(trace.NewNoopTracerProvider().Tracer("test"), t.TempDir()),
		Publisher: stubPublisher{err: errors.New("access denied")},
		Store:     &stubStore{err: errors.New("db down")},
		Notifier:  notifier,
	}, stubSource{name: "rss", posts: examplePosts})

	out := r.Run(context.Background())
	if !out.Success || out.ReportURL != "" {
		t.Fatalf("expected success without url, got %+v", out)
	}
	if len(notifier.outcomes) != 1 || notifier.aggs[0].Count != 3 {
		t.Fatalf("expected notification with aggregate, got %+v", notifier.aggs)
	}
}

func TestRunRecoversFromPanickingStage(t *testing.T) {
	r := newTestRunner(Deps{
		Prices: stubPrices{snap: examplePrice()},
		Scorer: panicScorer{},
		Writer: report.NewWriter(trace.NewNoopTracerProvider().Tracer("test"), t.TempDir()),
	}, stubSource{name: "rss", posts: examplePosts})

	out := r.Run(context.Background())
	if out.Success || !strings.HasPrefix(out.Error, "sentiment: panic") {
		t.Fatalf("expected sentiment stage failure, got %+v", out)
	}
}

func TestStageError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &StageError{Stage: StageReport, Err: domain.ErrIOFailure})
	stage, ok := FailedStage(err)
	if !ok || stage != StageReport {
		t.Fatalf("expected report stage, got %q %v", stage, ok)
	}
	if !errors.Is(err, domain.ErrIOFailure) {
		t.Fatalf("expected cause to unwrap")
	}
	if (&StageError{Stage: StagePrice, Err: errors.New("boom")}).Error() != "price: boom" {
		t.Fatalf("unexpected message format")
	}
}
