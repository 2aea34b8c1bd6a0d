// Package aggregate derives run-level statistics from per-post sentiment.
package aggregate

import (
	"math"

	"crypto-sentinel/internal/domain"
)

// Compute returns mean polarity (4 dp), label distribution in percent (1 dp)
// and the extreme results. Ties for the extremes go to the earliest result.
// Empty input yields the zero Aggregate.
func Compute(results []domain.SentimentResult) domain.Aggregate {
	if len(results) == 0 {
		return domain.Aggregate{}
	}

	var sum float64
	var positive, negative, neutral int
	maxIdx, minIdx := 0, 0
	for i, r := range results {
		sum += r.Polarity
		switch r.Label {
		case domain.LabelPositive:
			positive++
		case domain.LabelNegative:
			negative++
		default:
			neutral++
		}
		if r.Polarity > results[maxIdx].Polarity {
			maxIdx = i
		}
		if r.Polarity < results[minIdx].Polarity {
			minIdx = i
		}
	}

	total := float64(len(results))
	mostPositive := results[maxIdx]
	mostNegative := results[minIdx]
	return domain.Aggregate{
		Count:        len(results),
		MeanPolarity: round(sum/total, 4),
		PctPositive:  round(float64(positive)/total*100, 1),
		PctNegative:  round(float64(negative)/total*100, 1),
		PctNeutral:   round(float64(neutral)/total*100, 1),
		MostPositive: &mostPositive,
		MostNegative: &mostNegative,
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
