package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Post is a candidate text mentioning Bitcoin. Identity is its position in
// the collected sequence.
type Post struct {
	Text        string     `json:"text"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type Label string

const (
	LabelPositive Label = "Positive"
	LabelNegative Label = "Negative"
	LabelNeutral  Label = "Neutral"
)

// SentimentResult is the score for the post at index PostRef.
type SentimentResult struct {
	PostRef  int     `json:"post_ref"`
	Polarity float64 `json:"polarity"`
	Label    Label   `json:"label"`
}

type Aggregate struct {
	Count        int              `json:"count"`
	MeanPolarity float64          `json:"mean_polarity"`
	PctPositive  float64          `json:"pct_positive"`
	PctNegative  float64          `json:"pct_negative"`
	PctNeutral   float64          `json:"pct_neutral"`
	MostPositive *SentimentResult `json:"most_positive,omitempty"`
	MostNegative *SentimentResult `json:"most_negative,omitempty"`
}

// ReportRow is one CSV line. Detail rows carry a post; the summary row
// carries the run id in Timestamp and the description in Text.
type ReportRow struct {
	Timestamp string
	PriceUSD  decimal.Decimal
	Polarity  float64
	Label     string
	Text      string
}

type Report struct {
	RunID     string
	CreatedAt time.Time
	Rows      []ReportRow
	Summary   ReportRow
}

// Filename is the report file name derived from the run timestamp.
func (r Report) Filename() string {
	return "crypto_sentinel_report_" + r.CreatedAt.UTC().Format(RunTimestampLayout) + ".csv"
}

// RunTimestampLayout formats run ids and report file names (YYYYMMDDHHMMSS).
const RunTimestampLayout = "20060102150405"

// PipelineOutcome is the single value returned from a pipeline run. Exactly
// one of the success fields or Error is populated.
type PipelineOutcome struct {
	Success       bool             `json:"success"`
	RunID         string           `json:"run_id,omitempty"`
	BTCPrice      *decimal.Decimal `json:"btc_price,omitempty"`
	AvgSentiment  *float64         `json:"avg_sentiment,omitempty"`
	PostsAnalyzed int              `json:"posts_analyzed"`
	ReportPath    string           `json:"report_path,omitempty"`
	ReportURL     string           `json:"report_url,omitempty"`
	Error         string           `json:"error,omitempty"`
	FinishedAt    time.Time        `json:"finished_at"`
}

// RunRecord is a persisted row of run history.
type RunRecord struct {
	ID           int64
	RunID        string
	Success      bool
	BTCPrice     *decimal.Decimal
	AvgSentiment *float64
	PctPositive  float64
	PctNegative  float64
	PctNeutral   float64
	PostCount    int
	ReportPath   string
	ReportURL    string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}
