package sentiment

import (
	"context"
	"log/slog"
	"math"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Scorer maps one text to a polarity in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// Refiner optionally rescores a batch of texts. The returned map is keyed by
// position inside the batch; missing keys keep their local score.
type Refiner interface {
	Refine(ctx context.Context, texts []string) (map[int]float64, error)
}

type Thresholds struct {
	Positive float64
	Negative float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Positive: 0.1, Negative: -0.1}
}

func (t Thresholds) Classify(polarity float64) domain.Label {
	switch {
	case polarity > t.Positive:
		return domain.LabelPositive
	case polarity < t.Negative:
		return domain.LabelNegative
	default:
		return domain.LabelNeutral
	}
}

type Options struct {
	Thresholds Thresholds
	Workers    int
	Refiner    Refiner
	BatchSize  int
	Logger     *slog.Logger
}

type Analyzer struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	scorer     Scorer
	thresholds Thresholds
	workers    int
	refiner    Refiner
	batchSize  int
}

func NewAnalyzer(tracer trace.Tracer, scorer Scorer, opts Options) *Analyzer {
	if scorer == nil {
		scorer = NewCryptoLexicon()
	}
	if opts.Thresholds == (Thresholds{}) || opts.Thresholds.Negative >= opts.Thresholds.Positive {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 24
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Analyzer{
		tracer:     tracer,
		logger:     opts.Logger,
		scorer:     scorer,
		thresholds: opts.Thresholds,
		workers:    opts.Workers,
		refiner:    opts.Refiner,
		batchSize:  opts.BatchSize,
	}
}

// Score never fails: empty text and scorer panics both yield 0 and Neutral.
func (a *Analyzer) Score(text string) (float64, domain.Label) {
	polarity := a.safePolarity(text)
	return polarity, a.thresholds.Classify(polarity)
}

// ScoreBatch scores every text independently on a bounded worker pool. The
// result has the same length and order as texts, with PostRef set to the
// input index.
func (a *Analyzer) ScoreBatch(ctx context.Context, texts []string) []domain.SentimentResult {
	ctx, span := a.tracer.Start(ctx, "sentiment.score-batch")
	defer span.End()
	span.SetAttributes(attribute.Int("texts", len(texts)))

	results := make([]domain.SentimentResult, len(texts))
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			polarity, label := a.Score(text)
			results[i] = domain.SentimentResult{PostRef: i, Polarity: polarity, Label: label}
			return nil
		})
	}
	_ = g.Wait()

	if a.refiner != nil {
		a.refine(ctx, texts, results)
	}
	return results
}

func (a *Analyzer) refine(ctx context.Context, texts []string, results []domain.SentimentResult) {
	for start := 0; start < len(texts); start += a.batchSize {
		end := min(start+a.batchSize, len(texts))
		scores, err := a.refiner.Refine(ctx, texts[start:end])
		if err != nil {
			a.logger.Warn("sentiment refinement failed, keeping lexicon scores",
				"stage", "sentiment", "batch_start", start, "error", err)
			continue
		}
		for offset, polarity := range scores {
			idx := start + offset
			if offset < 0 || idx >= end {
				continue
			}
			polarity = round4(clamp(polarity, -1, 1))
			results[idx].Polarity = polarity
			results[idx].Label = a.thresholds.Classify(polarity)
		}
	}
}

func (a *Analyzer) safePolarity(text string) (polarity float64) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("sentiment scorer panicked", "panic", r)
			polarity = 0
		}
	}()
	polarity = a.scorer.Polarity(text)
	if math.IsNaN(polarity) {
		return 0
	}
	return clamp(polarity, -1, 1)
}
