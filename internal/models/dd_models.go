package models

import (
	"math"
	"time"
)

// DeletedAuthor is stored when the source reports no author.
const DeletedAuthor = "[deleted]"

type Decision string

const (
	DecisionBuy  Decision = "buy"
	DecisionSell Decision = "sell"
	DecisionHold Decision = "hold"
)

// Sentiment holds normalised polarity scores. Compound is in [-1, 1]; the
// other three are non-negative and sum to 1.
type Sentiment struct {
	Compound float64 `json:"compound"`
	Positive float64 `json:"pos"`
	Neutral  float64 `json:"neu"`
	Negative float64 `json:"neg"`
}

type Post struct {
	PostID         string
	Title          string
	Author         string
	Text           string
	TLDR           string
	CreatedUTC     time.Time
	ScrapedAt      time.Time
	Sentiment      Sentiment
	DetectedTicker *string
}

type Comment struct {
	CommentID  string
	PostID     string
	Author     string
	Text       string
	CreatedUTC time.Time
	Sentiment  Sentiment
	ScrapedAt  time.Time
}

type Action struct {
	PostID          string   `json:"post_id" dynamodbav:"post_id"`
	DetectedTicker  *string  `json:"detected_ticker" dynamodbav:"detected_ticker,omitempty"`
	PostScore       float64  `json:"post_score" dynamodbav:"post_score"`
	AvgCommentScore float64  `json:"avg_comment_score" dynamodbav:"avg_comment_score"`
	Decision        Decision `json:"decision" dynamodbav:"decision"`
	TLDR            string   `json:"tldr" dynamodbav:"tldr"`
}

// AuthorOrPlaceholder maps a missing author to DeletedAuthor.
func AuthorOrPlaceholder(author string) string {
	if author == "" {
		return DeletedAuthor
	}
	return author
}

// UTCFromUnix converts fractional unix seconds to a UTC time.
func UTCFromUnix(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond)).UTC()
}

// UnixFromUTC is the inverse of UTCFromUnix at microsecond precision.
func UnixFromUTC(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
