package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"

	"TrendScout/internal/model"
)

// Compound score thresholds, inclusive.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Scorer returns a compound polarity score in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(text string) float64

func (f ScorerFunc) Score(text string) float64 { return f(text) }

// VaderScorer scores text with the VADER lexicon.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon. The analyzer is read-only after
// construction and safe to share between workers.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Score(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

// Summarize counts positive and negative articles in the batch. Each article
// is scored on "title description"; articles without a title are skipped.
func Summarize(articles []model.Article, scorer Scorer) model.SentimentSummary {
	var s model.SentimentSummary
	for _, a := range articles {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		score := scorer.Score(a.Title + " " + a.Description)
		switch {
		case score >= PositiveThreshold:
			s.Positive++
		case score <= NegativeThreshold:
			s.Negative++
		}
	}
	return s
}
