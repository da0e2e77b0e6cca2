package sentiment

import (
	"context"

	"github.com/jonreiter/govader"
	"github.com/spacesedan/ddscraper/internal/models"
)

// Scorer returns polarity scores for a piece of text. Implementations must
// be deterministic for identical input.
type Scorer interface {
	Score(ctx context.Context, text string) (models.Sentiment, error)
}

type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score runs VADER on the text exactly as posted. VADER's punctuation,
// capitalisation and contrast rules are tuned for raw social-media text.
func (v *VaderScorer) Score(_ context.Context, text string) (models.Sentiment, error) {
	s := v.analyzer.PolarityScores(text)
	return models.Sentiment{
		Compound: s.Compound,
		Positive: s.Positive,
		Neutral:  s.Neutral,
		Negative: s.Negative,
	}, nil
}
