package collector

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Source is one candidate post feed. Implementations return at most limit
// posts and classify failures with the domain error sentinels.
type Source interface {
	Name() string
	FetchPosts(ctx context.Context, limit int) ([]domain.Post, error)
}

type Config struct {
	// MinPosts is the count at which later sources are no longer tried.
	MinPosts int
	// Dedup drops posts whose normalized text was already collected.
	Dedup bool
}

// Collector walks its sources in priority order and falls back to the next
// one whenever a source fails or yields nothing usable.
type Collector struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	sources []Source
	cfg     Config
}

func New(tracer trace.Tracer, logger *slog.Logger, sources []Source, cfg Config) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinPosts <= 0 {
		cfg.MinPosts = 1
	}
	return &Collector{
		tracer:  tracer,
		logger:  logger,
		sources: sources,
		cfg:     cfg,
	}
}

// Collect returns up to maxCount posts with non-empty text. Source failures
// are logged and skipped; when every source fails the result is empty, never
// an error.
func (c *Collector) Collect(ctx context.Context, maxCount int) []domain.Post {
	ctx, span := c.tracer.Start(ctx, "collector.collect")
	defer span.End()

	posts := make([]domain.Post, 0, max(maxCount, 0))
	if maxCount <= 0 {
		return posts
	}
	enough := min(c.cfg.MinPosts, maxCount)

	var seen map[string]struct{}
	if c.cfg.Dedup {
		seen = make(map[string]struct{}, maxCount)
	}

	tried := 0
	for _, src := range c.sources {
		if len(posts) >= enough {
			break
		}
		tried++
		start := time.Now()

		fetched, err := src.FetchPosts(ctx, maxCount-len(posts))
		if err != nil {
			c.logger.Warn("post source failed",
				"stage", "posts", "source", src.Name(), "error", err, "duration", time.Since(start))
			continue
		}

		added := 0
		for _, post := range fetched {
			if len(posts) >= maxCount {
				break
			}
			post.Text = strings.TrimSpace(post.Text)
			if post.Text == "" {
				continue
			}
			if seen != nil {
				key := dedupKey(post.Text)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			posts = append(posts, post)
			added++
		}

		if added == 0 {
			c.logger.Info("post source yielded no usable posts",
				"stage", "posts", "source", src.Name(), "duration", time.Since(start))
			continue
		}
		c.logger.Info("post source succeeded",
			"stage", "posts", "source", src.Name(), "posts", added, "duration", time.Since(start))
	}

	if len(posts) == 0 && len(c.sources) > 0 {
		c.logger.Warn("all post sources exhausted", "stage", "posts", "sources_tried", tried)
	}
	span.SetAttributes(
		attribute.Int("sources_tried", tried),
		attribute.Int("posts", len(posts)),
	)
	return posts
}

func dedupKey(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
