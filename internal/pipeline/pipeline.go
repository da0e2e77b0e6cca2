// Package pipeline runs one scrape of DD posts: fetch, score, summarise,
// decide and persist.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/ddscraper/internal/decision"
	"github.com/spacesedan/ddscraper/internal/models"
	"github.com/spacesedan/ddscraper/internal/sentiment"
	"github.com/spacesedan/ddscraper/internal/summary"
	"github.com/spacesedan/ddscraper/internal/ticker"
)

// CommentMateriality is the |compound| a comment must exceed to be stored
// and counted.
const CommentMateriality = 0.1

// Feed is the social-media source.
type Feed interface {
	FetchNewSubmissions(ctx context.Context, subreddit string, limit int) ([]models.Submission, error)
	FetchComments(ctx context.Context, submission models.Submission) ([]models.RedditComment, error)
}

// Store persists the four DD entities.
type Store interface {
	LoadWatermark(ctx context.Context, feedID string) (float64, error)
	SaveWatermark(ctx context.Context, feedID string, ts float64) error
	InsertPost(ctx context.Context, p models.Post) (bool, error)
	InsertComment(ctx context.Context, c models.Comment) (bool, error)
	InsertAction(ctx context.Context, a models.Action) (bool, error)
}

type Config struct {
	Subreddit string
	FeedID    string
	Flair     string
	Limit     int
}

type Pipeline struct {
	feed       Feed
	scorer     sentiment.Scorer
	resolver   *ticker.Resolver
	summarizer *summary.Summarizer
	cfg        Config
	now        func() time.Time
}

func New(cfg Config, feed Feed, scorer sentiment.Scorer, resolver *ticker.Resolver, summarizer *summary.Summarizer) *Pipeline {
	return &Pipeline{
		feed:       feed,
		scorer:     scorer,
		resolver:   resolver,
		summarizer: summarizer,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type Report struct {
	RunID            string
	Fetched          int
	Matched          int
	PostsInserted    int
	CommentsInserted int
	ActionsInserted  int
	WatermarkBefore  float64
	WatermarkAfter   float64
	// NewActions holds actions written for the first time in this run.
	NewActions []models.Action
}

// Run processes one batch against store. Every post that matches the flair
// is processed even if it is older than the watermark; the watermark is
// recorded but not used to skip work. Errors from the feed, the scorer or
// the store abort the run.
func (p *Pipeline) Run(ctx context.Context, store Store) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := slog.With(slog.String("run_id", report.RunID))

	lastScraped, err := store.LoadWatermark(ctx, p.cfg.FeedID)
	if err != nil {
		return nil, err
	}
	report.WatermarkBefore = lastScraped
	latestScraped := lastScraped

	submissions, err := p.feed.FetchNewSubmissions(ctx, p.cfg.Subreddit, p.cfg.Limit)
	if err != nil {
		return nil, err
	}
	report.Fetched = len(submissions)
	log.Info("[Pipeline] Fetched submissions",
		slog.String("subreddit", p.cfg.Subreddit),
		slog.Int("count", len(submissions)),
		slog.Float64("watermark", lastScraped))

	for _, submission := range submissions {
		if submission.CategoryLabel != p.cfg.Flair {
			continue
		}
		report.Matched++

		outcome, err := p.processSubmission(ctx, store, submission)
		if err != nil {
			return nil, fmt.Errorf("failed to process post %s: %w", submission.ID, err)
		}
		if outcome.postInserted {
			report.PostsInserted++
		}
		report.CommentsInserted += outcome.commentsInserted
		if outcome.actionInserted {
			report.ActionsInserted++
			report.NewActions = append(report.NewActions, outcome.action)
		}

		log.Info("[Pipeline] Processed post",
			slog.String("post_id", submission.ID),
			slog.String("ticker", tickerString(outcome.action.DetectedTicker)),
			slog.String("post_score", fmt.Sprintf("%.2f", outcome.action.PostScore)),
			slog.String("comment_score", fmt.Sprintf("%.2f", outcome.action.AvgCommentScore)),
			slog.String("decision", string(outcome.action.Decision)))

		latestScraped = math.Max(latestScraped, submission.CreatedUTC)
	}

	if err := store.SaveWatermark(ctx, p.cfg.FeedID, latestScraped); err != nil {
		return nil, err
	}
	report.WatermarkAfter = latestScraped

	log.Info("[Pipeline] Run complete",
		slog.Int("matched", report.Matched),
		slog.Int("posts_inserted", report.PostsInserted),
		slog.Int("comments_inserted", report.CommentsInserted),
		slog.Int("actions_inserted", report.ActionsInserted),
		slog.Float64("watermark", latestScraped))
	return report, nil
}

type postOutcome struct {
	action           models.Action
	postInserted     bool
	actionInserted   bool
	commentsInserted int
}

func (p *Pipeline) processSubmission(ctx context.Context, store Store, submission models.Submission) (postOutcome, error) {
	var outcome postOutcome
	scrapedAt := p.now()

	postSentiment, err := p.scorer.Score(ctx, submission.Body)
	if err != nil {
		return outcome, fmt.Errorf("sentiment scoring failed: %w", err)
	}
	detected := p.resolver.Resolve(submission.Title, submission.Body)
	tldr := p.summarizer.Summarize(ctx, submission.Body)

	outcome.postInserted, err = store.InsertPost(ctx, models.Post{
		PostID:         submission.ID,
		Title:          submission.Title,
		Author:         models.AuthorOrPlaceholder(submission.Author),
		Text:           submission.Body,
		TLDR:           tldr.Text,
		CreatedUTC:     models.UTCFromUnix(submission.CreatedUTC),
		ScrapedAt:      scrapedAt,
		Sentiment:      postSentiment,
		DetectedTicker: detected,
	})
	if err != nil {
		return outcome, err
	}

	comments, err := p.feed.FetchComments(ctx, submission)
	if err != nil {
		return outcome, err
	}

	var commentScores []float64
	for _, comment := range comments {
		if !comment.HasBody {
			continue
		}
		s, err := p.scorer.Score(ctx, comment.Body)
		if err != nil {
			return outcome, fmt.Errorf("comment sentiment scoring failed: %w", err)
		}
		if math.Abs(s.Compound) <= CommentMateriality {
			continue
		}
		commentScores = append(commentScores, s.Compound)

		inserted, err := store.InsertComment(ctx, models.Comment{
			CommentID:  comment.ID,
			PostID:     submission.ID,
			Author:     models.AuthorOrPlaceholder(comment.Author),
			Text:       comment.Body,
			CreatedUTC: models.UTCFromUnix(comment.CreatedUTC),
			Sentiment:  s,
			ScrapedAt:  scrapedAt,
		})
		if err != nil {
			return outcome, err
		}
		if inserted {
			outcome.commentsInserted++
		}
	}

	result := decision.Decide(postSentiment.Compound, commentScores)
	outcome.action = models.Action{
		PostID:          submission.ID,
		DetectedTicker:  detected,
		PostScore:       postSentiment.Compound,
		AvgCommentScore: result.AvgCommentScore,
		Decision:        result.Decision,
		TLDR:            tldr.Text,
	}

	outcome.actionInserted, err = store.InsertAction(ctx, outcome.action)
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

func tickerString(t *string) string {
	if t == nil {
		return "None"
	}
	return *t
}
