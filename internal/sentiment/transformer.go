package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/spacesedan/ddscraper/internal/models"
)

const maxTransformerInputRunes = 2000

// TransformerScorer runs a three-class (positive/neutral/negative) text
// classification model such as FinBERT. Compound is positive minus negative.
type TransformerScorer struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

func NewTransformerScorer(modelPath string) (*TransformerScorer, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("transformer sentiment requires a model path")
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "ddSentimentPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to initialize sentiment pipeline: %w", err)
	}

	slog.Info("[Sentiment] Transformer pipeline ready", slog.String("model", modelPath))
	return &TransformerScorer{session: session, pipeline: pipeline}, nil
}

func (t *TransformerScorer) Score(_ context.Context, text string) (models.Sentiment, error) {
	plain := PlainText(text)
	if r := []rune(plain); len(r) > maxTransformerInputRunes {
		plain = string(r[:maxTransformerInputRunes])
	}

	output, err := t.pipeline.RunPipeline([]string{plain})
	if err != nil {
		return models.Sentiment{}, fmt.Errorf("sentiment pipeline failed: %w", err)
	}
	if len(output.ClassificationOutputs) == 0 {
		return models.Sentiment{}, fmt.Errorf("sentiment pipeline returned no output")
	}

	probs := make(map[string]float64, 3)
	for _, c := range output.ClassificationOutputs[0] {
		probs[strings.ToLower(c.Label)] = float64(c.Score)
	}
	return FromClassProbabilities(probs), nil
}

func (t *TransformerScorer) Close() error {
	return t.session.Destroy()
}

// FromClassProbabilities turns class probabilities into a Sentiment. Classes
// the model did not report share the remaining probability mass equally.
func FromClassProbabilities(probs map[string]float64) models.Sentiment {
	var s models.Sentiment
	seen := map[string]bool{}
	var total float64
	for label, p := range probs {
		switch {
		case strings.HasPrefix(label, "pos"):
			s.Positive, seen["pos"] = p, true
		case strings.HasPrefix(label, "neg"):
			s.Negative, seen["neg"] = p, true
		case strings.HasPrefix(label, "neu"):
			s.Neutral, seen["neu"] = p, true
		default:
			continue
		}
		total += p
	}

	missing := 3 - len(seen)
	if missing > 0 && total < 1 {
		share := (1 - total) / float64(missing)
		if !seen["pos"] {
			s.Positive = share
		}
		if !seen["neg"] {
			s.Negative = share
		}
		if !seen["neu"] {
			s.Neutral = share
		}
	}

	s.Compound = s.Positive - s.Negative
	return s
}
