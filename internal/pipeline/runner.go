package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crypto-sentinel/internal/aggregate"
	"crypto-sentinel/internal/domain"
	"crypto-sentinel/internal/report"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type PriceSource interface {
	FetchSnapshot(ctx context.Context) (domain.PriceSnapshot, error)
}

type PostCollector interface {
	Collect(ctx context.Context, maxCount int) []domain.Post
}

type BatchScorer interface {
	ScoreBatch(ctx context.Context, texts []string) []domain.SentimentResult
}

type ReportWriter interface {
	Write(ctx context.Context, report domain.Report) (string, error)
}

// ReportPublisher copies a written report somewhere durable and returns its URL.
type ReportPublisher interface {
	Publish(ctx context.Context, localPath string, createdAt time.Time) (string, error)
}

type RunStore interface {
	InsertRun(ctx context.Context, run domain.RunRecord) (int64, error)
}

type Notifier interface {
	NotifyRun(ctx context.Context, outcome domain.PipelineOutcome, agg domain.Aggregate) error
}

// Deps are the pipeline collaborators. Publisher, Store and Notifier are
// optional side effects; their failures never change the outcome.
type Deps struct {
	Prices    PriceSource
	Posts     PostCollector
	Scorer    BatchScorer
	Writer    ReportWriter
	Publisher ReportPublisher
	Store     RunStore
	Notifier  Notifier
}

type Config struct {
	MaxPosts int
}

// Runner executes price → posts → sentiment → aggregate → report once per
// Run call. It holds no state between runs.
type Runner struct {
	tracer trace.Tracer
	logger *slog.Logger
	deps   Deps
	cfg    Config
	now    func() time.Time
}

func NewRunner(tracer trace.Tracer, logger *slog.Logger, deps Deps, cfg Config) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = 20
	}
	return &Runner{
		tracer: tracer,
		logger: logger,
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
	}
}

// run holds the values produced by one invocation.
type run struct {
	id        string
	startedAt time.Time
	price     domain.PriceSnapshot
	posts     []domain.Post
	results   []domain.SentimentResult
	agg       domain.Aggregate
	path      string
}

// Run executes the pipeline and always returns a coherent outcome. A
// failing price fetch or report write ends the run with Success false;
// zero collected posts still produces a summary-only report.
func (r *Runner) Run(ctx context.Context) domain.PipelineOutcome {
	ctx, span := r.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	st := &run{startedAt: r.now().UTC()}
	st.id = st.startedAt.Format(domain.RunTimestampLayout)
	span.SetAttributes(attribute.String("run_id", st.id))
	r.logger.Info("pipeline run started", "run_id", st.id, "max_posts", r.cfg.MaxPosts)

	err := r.execute(ctx, st)

	outcome := domain.PipelineOutcome{
		RunID:      st.id,
		FinishedAt: r.now().UTC(),
	}
	if err != nil {
		outcome.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		stage, _ := FailedStage(err)
		r.logger.Error("pipeline run failed", "run_id", st.id, "stage", stage, "error", err)
	} else {
		price := st.price.PriceUSD
		avg := st.agg.MeanPolarity
		outcome.Success = true
		outcome.BTCPrice = &price
		outcome.AvgSentiment = &avg
		outcome.PostsAnalyzed = len(st.results)
		outcome.ReportPath = st.path
		r.guard(st.id, "publish", func() { outcome.ReportURL = r.publish(ctx, st) })
		r.logger.Info("pipeline run succeeded",
			"run_id", st.id, "price_usd", price.String(), "avg_sentiment", avg,
			"posts", outcome.PostsAnalyzed, "report", st.path,
			"duration", outcome.FinishedAt.Sub(st.startedAt))
	}

	r.guard(st.id, "record", func() { r.record(ctx, st, outcome) })
	r.guard(st.id, "notify", func() { r.notify(ctx, st, outcome) })
	return outcome
}

// guard runs an optional side effect so that a panic in it cannot escape Run.
func (r *Runner) guard(runID, name string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("side effect panicked", "run_id", runID, "step", name, "panic", p)
		}
	}()
	fn()
}

func (r *Runner) execute(ctx context.Context, st *run) (err error) {
	stage := StagePrice
	defer func() {
		if p := recover(); p != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	price, err := r.fetchPrice(ctx)
	if err != nil {
		return &StageError{Stage: StagePrice, Err: err}
	}
	st.price = price

	stage = StagePosts
	st.posts = r.collectPosts(ctx)

	stage = StageSentiment
	st.results = r.scorePosts(ctx, st.posts)

	stage = StageAggregate
	st.agg = aggregate.Compute(st.results)
	r.logger.Info("stage complete", "stage", StageAggregate, "outcome", "ok",
		"posts", st.agg.Count, "mean_polarity", st.agg.MeanPolarity,
		"pct_positive", st.agg.PctPositive, "pct_negative", st.agg.PctNegative, "pct_neutral", st.agg.PctNeutral)

	stage = StageReport
	path, err := r.writeReport(ctx, st)
	if err != nil {
		return &StageError{Stage: StageReport, Err: err}
	}
	st.path = path
	return nil
}

func (r *Runner) fetchPrice(ctx context.Context) (domain.PriceSnapshot, error) {
	if r.deps.Prices == nil {
		return domain.PriceSnapshot{}, fmt.Errorf("price source is not configured")
	}
	start := time.Now()
	price, err := r.deps.Prices.FetchSnapshot(ctx)
	if err != nil {
		r.logger.Warn("stage failed", "stage", StagePrice, "outcome", "error", "error", err, "duration", time.Since(start))
		return domain.PriceSnapshot{}, err
	}
	r.logger.Info("stage complete", "stage", StagePrice, "outcome", "ok",
		"price_usd", price.PriceUSD.String(), "change_24h_pct", price.Change24hPct.String(), "duration", time.Since(start))
	return price, nil
}

func (r *Runner) collectPosts(ctx context.Context) []domain.Post {
	if r.deps.Posts == nil {
		r.logger.Warn("stage skipped", "stage", StagePosts, "outcome", "no collector")
		return nil
	}
	start := time.Now()
	posts := r.deps.Posts.Collect(ctx, r.cfg.MaxPosts)
	if len(posts) > r.cfg.MaxPosts {
		posts = posts[:r.cfg.MaxPosts]
	}
	outcome := "ok"
	if len(posts) == 0 {
		outcome = "empty"
	}
	r.logger.Info("stage complete", "stage", StagePosts, "outcome", outcome, "posts", len(posts), "duration", time.Since(start))
	return posts
}

func (r *Runner) scorePosts(ctx context.Context, posts []domain.Post) []domain.SentimentResult {
	texts := make([]string, len(posts))
	for i, post := range posts {
		texts[i] = post.Text
	}
	if len(texts) == 0 || r.deps.Scorer == nil {
		return []domain.SentimentResult{}
	}
	start := time.Now()
	results := r.deps.Scorer.ScoreBatch(ctx, texts)
	r.logger.Info("stage complete", "stage", StageSentiment, "outcome", "ok", "posts", len(results), "duration", time.Since(start))
	return results
}

func (r *Runner) writeReport(ctx context.Context, st *run) (string, error) {
	if r.deps.Writer == nil {
		return "", fmt.Errorf("report writer is not configured")
	}
	rep, err := report.Build(st.startedAt, st.price, st.posts, st.results, st.agg)
	if err != nil {
		return "", err
	}
	path, err := r.deps.Writer.Write(ctx, rep)
	if err != nil {
		r.logger.Warn("stage failed", "stage", StageReport, "outcome", "error", "error", err)
		return "", err
	}
	r.logger.Info("stage complete", "stage", StageReport, "outcome", "ok", "rows", len(rep.Rows)+1, "path", path)
	return path, nil
}

func (r *Runner) publish(ctx context.Context, st *run) string {
	if r.deps.Publisher == nil || st.path == "" {
		return ""
	}
	url, err := r.deps.Publisher.Publish(ctx, st.path, st.startedAt)
	if err != nil {
		r.logger.Warn("report upload failed", "run_id", st.id, "error", err)
		return ""
	}
	r.logger.Info("report uploaded", "run_id", st.id, "url", url)
	return url
}

func (r *Runner) record(ctx context.Context, st *run, outcome domain.PipelineOutcome) {
	if r.deps.Store == nil {
		return
	}
	rec := domain.RunRecord{
		RunID:        outcome.RunID,
		Success:      outcome.Success,
		BTCPrice:     outcome.BTCPrice,
		AvgSentiment: outcome.AvgSentiment,
		PostCount:    outcome.PostsAnalyzed,
		ReportPath:   outcome.ReportPath,
		ReportURL:    outcome.ReportURL,
		Error:        outcome.Error,
		StartedAt:    st.startedAt,
		FinishedAt:   outcome.FinishedAt,
	}
	if outcome.Success {
		rec.PctPositive = st.agg.PctPositive
		rec.PctNegative = st.agg.PctNegative
		rec.PctNeutral = st.agg.PctNeutral
	}
	if _, err := r.deps.Store.InsertRun(ctx, rec); err != nil {
		r.logger.Warn("run history insert failed", "run_id", st.id, "error", err)
	}
}

func (r *Runner) notify(ctx context.Context, st *run, outcome domain.PipelineOutcome) {
	if r.deps.Notifier == nil {
		return
	}
	agg := domain.Aggregate{}
	if outcome.Success {
		agg = st.agg
	}
	if err := r.deps.Notifier.NotifyRun(ctx, outcome, agg); err != nil {
		r.logger.Warn("run notification failed", "run_id", st.id, "error", err)
	}
}
