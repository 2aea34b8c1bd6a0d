package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultYahooBTCFeed     = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=BTC-USD&region=US&lang=en-US"
	defaultCryptoCompareURL = "https://min-api.cryptocompare.com/data/v2/news/?lang=EN&sortOrder=latest&categories=BTC"
	defaultRedditSubreddit  = "Bitcoin"
)

// SourceSpec names one candidate post source as kind:target, e.g.
// "rss:https://example.com/feed.xml" or "reddit:Bitcoin".
type SourceSpec struct {
	Kind   string
	Target string
}

func (s SourceSpec) String() string {
	return s.Kind + ":" + s.Target
}

type Config struct {
	MaxPosts          int
	MinPosts          int
	PositiveThreshold float64
	NegativeThreshold float64
	ReportsDir        string
	RequestTimeout    time.Duration
	CandidateSources  []SourceSpec
	Keywords          []string
	DedupPosts        bool
	ScoreWorkers      int

	CoinGeckoBaseURL string
	FearGreedBaseURL string

	RedisURL      string
	PriceCacheTTL time.Duration

	DatabaseURL string

	S3Bucket   string
	S3Region   string
	S3Prefix   string
	S3Endpoint string

	OpenAIAPIKey string
	OpenAIModel  string

	TelegramBotToken string
	TelegramChatID   int64

	HTTPAddr      string
	TriggerAPIKey string
	LogLevel      string
}

func Load() *Config {
	cfg := &Config{
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		S3Bucket:         strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Endpoint:       strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	cfg.MaxPosts = 20
	if v := strings.TrimSpace(os.Getenv("MAX_POSTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPosts = n
		} else {
			slog.Warn("invalid MAX_POSTS, using default", "value", v, "default", cfg.MaxPosts)
		}
	}

	cfg.MinPosts = 1
	if v := strings.TrimSpace(os.Getenv("MIN_POSTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinPosts = n
		}
	}
	if cfg.MinPosts > cfg.MaxPosts {
		cfg.MinPosts = cfg.MaxPosts
	}

	cfg.PositiveThreshold = 0.1
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_POSITIVE_THRESHOLD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > -1 && n < 1 {
			cfg.PositiveThreshold = n
		}
	}

	cfg.NegativeThreshold = -0.1
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_NEGATIVE_THRESHOLD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > -1 && n < 1 {
			cfg.NegativeThreshold = n
		}
	}
	if cfg.NegativeThreshold >= cfg.PositiveThreshold {
		slog.Warn("sentiment thresholds overlap, using defaults",
			"positive", cfg.PositiveThreshold, "negative", cfg.NegativeThreshold)
		cfg.PositiveThreshold = 0.1
		cfg.NegativeThreshold = -0.1
	}

	cfg.ReportsDir = strings.TrimSpace(os.Getenv("REPORTS_DIR"))
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "./data/reports"
	}

	cfg.RequestTimeout = 15 * time.Second
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n * float64(time.Second))
		}
	}

	cfg.CandidateSources = parseSources(os.Getenv("POST_SOURCES"))
	if len(cfg.CandidateSources) == 0 {
		cfg.CandidateSources = []SourceSpec{
			{Kind: "rss", Target: defaultYahooBTCFeed},
			{Kind: "cryptocompare", Target: defaultCryptoCompareURL},
			{Kind: "reddit", Target: defaultRedditSubreddit},
		}
	}

	cfg.Keywords = []string{"bitcoin", "btc", "crypto"}
	if v, ok := os.LookupEnv("POST_KEYWORDS"); ok {
		cfg.Keywords = splitCSV(strings.ToLower(v))
	}

	cfg.DedupPosts = strings.EqualFold(strings.TrimSpace(os.Getenv("DEDUP_POSTS")), "true")

	cfg.ScoreWorkers = 4
	if v := strings.TrimSpace(os.Getenv("SCORE_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScoreWorkers = n
		}
	}

	cfg.CoinGeckoBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("COINGECKO_BASE_URL")), "/")
	if cfg.CoinGeckoBaseURL == "" {
		cfg.CoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
	}

	cfg.FearGreedBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FEAR_GREED_BASE_URL")), "/")
	if cfg.FearGreedBaseURL == "" {
		cfg.FearGreedBaseURL = "https://api.alternative.me"
	}

	cfg.PriceCacheTTL = 90 * time.Second
	if v := strings.TrimSpace(os.Getenv("PRICE_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PriceCacheTTL = time.Duration(n) * time.Second
		}
	}

	cfg.S3Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	cfg.S3Prefix = strings.Trim(strings.TrimSpace(os.Getenv("S3_PREFIX")), "/")
	if cfg.S3Prefix == "" {
		cfg.S3Prefix = "reports/daily"
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			slog.Warn("invalid TELEGRAM_CHAT_ID, notifications disabled", "value", v)
		}
	}

	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.TriggerAPIKey = strings.TrimSpace(os.Getenv("TRIGGER_API_KEY"))

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg
}

// parseSources reads a comma separated kind:target list. Entries without a
// known kind are dropped with a warning.
func parseSources(raw string) []SourceSpec {
	var out []SourceSpec
	for _, entry := range splitCSV(raw) {
		kind, target, ok := strings.Cut(entry, ":")
		kind = strings.ToLower(strings.TrimSpace(kind))
		target = strings.TrimSpace(target)
		if !ok || target == "" {
			slog.Warn("ignoring post source without target", "entry", entry)
			continue
		}
		switch kind {
		case "rss", "cryptocompare", "reddit":
			out = append(out, SourceSpec{Kind: kind, Target: target})
		default:
			slog.Warn("ignoring post source with unknown kind", "entry", entry)
		}
	}
	return out
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
