package sentiment

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jonreiter/govader"
)

type weightedTerm struct {
	term   string
	weight float64
}

var cryptoTerms = buildTerms(
	// strongly bullish
	map[string]float64{
		"moon": 0.9, "mooning": 0.9, "lambo": 0.9, "rocket": 0.8,
		"ath": 0.8, "all-time high": 0.8, "diamond hands": 0.7,
		"hodl": 0.6, "hold": 0.4, "pump": 0.6, "surge": 0.7,
		"rally": 0.7, "bull run": 0.8, "bullish": 0.7, "breakout": 0.7,
		"green candle": 0.6, "green": 0.3, "profit": 0.6, "gains": 0.7,
		"buy the dip": 0.5, "accumulate": 0.4, "strong hands": 0.6,
	},
	map[string]float64{
		"adoption": 0.4, "institutional": 0.3, "mainstream": 0.4,
		"partnership": 0.5, "integration": 0.4, "upgrade": 0.5,
		"bullish signal": 0.6, "golden cross": 0.6, "support level": 0.3,
		"resistance break": 0.5, "volume spike": 0.4, "whale accumulation": 0.5,
	},
	// strongly bearish
	map[string]float64{
		"rekt": -0.9, "liquidation": -0.9, "liquidated": -0.9,
		"rug pull": -0.9, "rugpull": -0.9, "scam": -0.9, "ponzi": -0.9,
		"crash": -0.8, "dump": -0.7, "dumping": -0.7, "bear market": -0.7,
		"bearish": -0.7, "panic sell": -0.8, "panic selling": -0.8,
		"death cross": -0.7, "red candle": -0.6, "red": -0.3,
		"loss": -0.6, "losses": -0.6, "bleeding": -0.7, "brutal": -0.8,
	},
	map[string]float64{
		"correction": -0.3, "dip": -0.2, "pullback": -0.2, "decline": -0.4,
		"sell": -0.3, "selling pressure": -0.5, "resistance": -0.2,
		"overhead resistance": -0.3, "weak hands": -0.4, "fud": -0.6,
		"fear": -0.5, "uncertainty": -0.3, "doubt": -0.4, "volatile": -0.2,
		"manipulation": -0.6, "whale dump": -0.7, "paper hands": -0.5,
	},
	// informative; they count as matches and shift weight to the lexicon
	map[string]float64{
		"blockchain": 0, "mining": 0, "hash": 0, "wallet": 0,
		"exchange": 0, "transaction": 0, "block": 0, "node": 0,
		"protocol": 0, "fork": 0, "halving": 0, "difficulty": 0,
		"market cap": 0, "volume": 0, "liquidity": 0, "trading": 0,
		"analysis": 0, "chart": 0, "technical": 0, "fundamental": 0,
	},
)

var (
	positiveEmojis = []string{"🚀", "🌙", "💎", "🔥", "📈", "💚", "✅", "🎉", "💪", "🔝"}
	negativeEmojis = []string{"📉", "💔", "😭", "😰", "🔴", "❌", "💸", "⬇️", "😱", "🩸"}

	urlPattern     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

const emojiWeight = 0.3

// buildTerms merges the dictionaries and orders them longest first so
// phrases win over the single words they contain.
func buildTerms(dicts ...map[string]float64) []weightedTerm {
	var out []weightedTerm
	for _, dict := range dicts {
		for term, weight := range dict {
			out = append(out, weightedTerm{term: term, weight: weight})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].term) != len(out[j].term) {
			return len(out[i].term) > len(out[j].term)
		}
		return out[i].term < out[j].term
	})
	return out
}

// CryptoLexicon scores text by blending crypto slang weights, VADER compound
// polarity and emoji signals.
type CryptoLexicon struct {
	vader *govader.SentimentIntensityAnalyzer
}

func NewCryptoLexicon() *CryptoLexicon {
	return &CryptoLexicon{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns a score in [-1, 1] rounded to four decimals. Empty text
// scores 0.
func (l *CryptoLexicon) Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	emoji := emojiScore(text)
	cleaned := normalize(text)
	if cleaned == "" {
		return round4(clamp(0.2*emoji, -1, 1))
	}

	base := l.vader.PolarityScores(cleaned).Compound
	crypto, matches := termScore(cleaned)

	var polarity float64
	if matches > 0 {
		polarity = 0.6*crypto + 0.3*base + 0.1*emoji
	} else {
		polarity = 0.8*base + 0.2*emoji
	}
	return round4(clamp(polarity, -1, 1))
}

func emojiScore(text string) float64 {
	score := 0.0
	for _, e := range positiveEmojis {
		score += float64(strings.Count(text, e)) * emojiWeight
	}
	for _, e := range negativeEmojis {
		score -= float64(strings.Count(text, e)) * emojiWeight
	}
	return score
}

// normalize renders markdown to plain text, drops links and mentions and
// lowercases the result.
func normalize(text string) string {
	text = markdownToText(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// termScore sums the weight of every lexicon term found on word boundaries.
// A matched term is blanked out so shorter terms inside it are not counted
// again.
func termScore(cleaned string) (float64, int) {
	padded := " " + strings.Join(strings.FieldsFunc(cleaned, isTermSeparator), " ") + " "
	score := 0.0
	matches := 0
	for _, t := range cryptoTerms {
		needle := " " + t.term + " "
		if !strings.Contains(padded, needle) {
			continue
		}
		score += t.weight
		matches++
		padded = strings.ReplaceAll(padded, needle, "  ")
	}
	return score, matches
}

func isTermSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
