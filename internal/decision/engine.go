package decision

import "github.com/spacesedan/ddscraper/internal/models"

const (
	BuyPostThreshold     = 0.9
	BuyCommentThreshold  = 0.5
	SellPostThreshold    = -0.9
	SellCommentThreshold = -0.5
)

type Result struct {
	AvgCommentScore float64
	Decision        models.Decision
}

// Decide averages the comment scores (0.0 when there are none) and
// classifies the post. Buy is checked before sell; everything else holds.
func Decide(postCompound float64, commentCompounds []float64) Result {
	avg := Average(commentCompounds)

	decision := models.DecisionHold
	switch {
	case postCompound > BuyPostThreshold && avg > BuyCommentThreshold:
		decision = models.DecisionBuy
	case postCompound < SellPostThreshold && avg < SellCommentThreshold:
		decision = models.DecisionSell
	}

	return Result{AvgCommentScore: avg, Decision: decision}
}

func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
