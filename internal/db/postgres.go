package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spacesedan/ddscraper/internal/models"
)

// Querier is satisfied by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository writes DD posts, comments, actions and the scrape watermark.
// Inserts are insert-if-absent; the watermark is an upsert.
type Repository struct {
	q Querier
}

func NewRepository(q Querier) *Repository {
	return &Repository{q: q}
}

const schema = `
CREATE TABLE IF NOT EXISTS scrape_state (
    id               TEXT PRIMARY KEY,
    last_scraped_utc TIMESTAMP
);

CREATE TABLE IF NOT EXISTS dd_post (
    post_id            TEXT PRIMARY KEY,
    title              TEXT,
    author             TEXT,
    post_text          TEXT,
    tldr               TEXT,
    created_utc        TIMESTAMP,
    scraped_at         TIMESTAMP,
    sentiment_compound DOUBLE PRECISION,
    sentiment_pos      DOUBLE PRECISION,
    sentiment_neu      DOUBLE PRECISION,
    sentiment_neg      DOUBLE PRECISION,
    detected_ticker    TEXT
);

CREATE TABLE IF NOT EXISTS post_comment (
    comment_id         TEXT PRIMARY KEY,
    post_id            TEXT REFERENCES dd_post (post_id),
    author             TEXT,
    comment_text       TEXT,
    created_utc        TIMESTAMP,
    sentiment_compound DOUBLE PRECISION,
    sentiment_pos      DOUBLE PRECISION,
    sentiment_neu      DOUBLE PRECISION,
    sentiment_neg      DOUBLE PRECISION,
    scraped_at         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS action (
    post_id           TEXT PRIMARY KEY REFERENCES dd_post (post_id),
    detected_ticker   TEXT,
    post_score        DOUBLE PRECISION,
    avg_comment_score DOUBLE PRECISION,
    decision          TEXT,
    tldr              TEXT
);
`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	slog.Info("[DB] Schema ready")
	return nil
}

// LoadWatermark returns the last scrape time as unix seconds, or 0.0 when
// none has been recorded.
func (r *Repository) LoadWatermark(ctx context.Context, feedID string) (float64, error) {
	var last *time.Time
	err := r.q.QueryRow(ctx,
		`SELECT last_scraped_utc FROM scrape_state WHERE id = $1`, feedID).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0.0, nil
	}
	if err != nil {
		return 0.0, fmt.Errorf("failed to load watermark for %s: %w", feedID, err)
	}
	if last == nil {
		return 0.0, nil
	}
	return models.UnixFromUTC(*last), nil
}

func (r *Repository) SaveWatermark(ctx context.Context, feedID string, ts float64) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO scrape_state (id, last_scraped_utc)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET last_scraped_utc = EXCLUDED.last_scraped_utc`,
		feedID, models.UTCFromUnix(ts))
	if err != nil {
		return fmt.Errorf("failed to save watermark for %s: %w", feedID, err)
	}
	return nil
}

// InsertPost reports whether a new row was written.
func (r *Repository) InsertPost(ctx context.Context, p models.Post) (bool, error) {
	tag, err := r.q.Exec(ctx, `
        INSERT INTO dd_post (
            post_id, title, author, post_text, tldr, created_utc, scraped_at,
            sentiment_compound, sentiment_pos, sentiment_neu, sentiment_neg, detected_ticker
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (post_id) DO NOTHING`,
		p.PostID, p.Title, p.Author, p.Text, p.TLDR, p.CreatedUTC, p.ScrapedAt,
		p.Sentiment.Compound, p.Sentiment.Positive, p.Sentiment.Neutral, p.Sentiment.Negative,
		p.DetectedTicker)
	if err != nil {
		return false, fmt.Errorf("failed to insert post %s: %w", p.PostID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) InsertComment(ctx context.Context, c models.Comment) (bool, error) {
	tag, err := r.q.Exec(ctx, `
        INSERT INTO post_comment (
            comment_id, post_id, author, comment_text, created_utc,
            sentiment_compound, sentiment_pos, sentiment_neu, sentiment_neg, scraped_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (comment_id) DO NOTHING`,
		c.CommentID, c.PostID, c.Author, c.Text, c.CreatedUTC,
		c.Sentiment.Compound, c.Sentiment.Positive, c.Sentiment.Neutral, c.Sentiment.Negative,
		c.ScrapedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert comment %s: %w", c.CommentID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) InsertAction(ctx context.Context, a models.Action) (bool, error) {
	tag, err := r.q.Exec(ctx, `
        INSERT INTO action (
            post_id, detected_ticker, post_score, avg_comment_score, decision, tldr
        ) VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (post_id) DO NOTHING`,
		a.PostID, a.DetectedTicker, a.PostScore, a.AvgCommentScore, string(a.Decision), a.TLDR)
	if err != nil {
		return false, fmt.Errorf("failed to insert action %s: %w", a.PostID, err)
	}
	return tag.RowsAffected() > 0, nil
}
