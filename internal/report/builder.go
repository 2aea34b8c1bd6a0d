package report

import (
	"fmt"
	"strconv"
	"time"

	"crypto-sentinel/internal/domain"
)

const (
	maxRowText   = 500
	summaryLabel = "SUMMARY"
)

// Header lists the CSV columns in order.
var Header = []string{"timestamp", "btc_price_usd", "sentiment_polarity", "sentiment_label", "tweet_text"}

// Build assembles one detail row per post, in order, plus the trailing
// summary row for the run started at runAt.
func Build(runAt time.Time, price domain.PriceSnapshot, posts []domain.Post, results []domain.SentimentResult, agg domain.Aggregate) (domain.Report, error) {
	if len(posts) != len(results) {
		return domain.Report{}, fmt.Errorf("report: %d posts but %d sentiment results", len(posts), len(results))
	}

	runAt = runAt.UTC()
	runID := runAt.Format(domain.RunTimestampLayout)
	stamp := runAt.Format(time.RFC3339)

	rows := make([]domain.ReportRow, 0, len(posts))
	for i, post := range posts {
		r := results[i]
		rows = append(rows, domain.ReportRow{
			Timestamp: stamp,
			PriceUSD:  price.PriceUSD,
			Polarity:  r.Polarity,
			Label:     string(r.Label),
			Text:      truncate(post.Text, maxRowText),
		})
	}

	return domain.Report{
		RunID:     runID,
		CreatedAt: runAt,
		Rows:      rows,
		Summary: domain.ReportRow{
			Timestamp: "RESUMO_" + runID,
			PriceUSD:  price.PriceUSD,
			Polarity:  agg.MeanPolarity,
			Label:     summaryLabel,
			Text:      Description(agg),
		},
	}, nil
}

// Description is the free-text summary, e.g.
// "Análise de 3 posts | Pos: 33.3% | Neg: 33.3%".
func Description(agg domain.Aggregate) string {
	return fmt.Sprintf("Análise de %d posts | Pos: %.1f%% | Neg: %.1f%%", agg.Count, agg.PctPositive, agg.PctNegative)
}

func record(row domain.ReportRow) []string {
	return []string{
		row.Timestamp,
		row.PriceUSD.String(),
		strconv.FormatFloat(row.Polarity, 'f', -1, 64),
		row.Label,
		row.Text,
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
