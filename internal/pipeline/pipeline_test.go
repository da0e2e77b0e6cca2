package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/spacesedan/ddscraper/internal/models"
	"github.com/spacesedan/ddscraper/internal/summary"
	"github.com/spacesedan/ddscraper/internal/ticker"
)

type fakeFeed struct {
	submissions  []models.Submission
	comments     map[string][]models.RedditComment
	commentCalls []string
	err          error
}

func (f *fakeFeed) FetchNewSubmissions(_ context.Context, _ string, _ int) ([]models.Submission, error) {
	return f.submissions, f.err
}

func (f *fakeFeed) FetchComments(_ context.Context, s models.Submission) ([]models.RedditComment, error) {
	f.commentCalls = append(f.commentCalls, s.ID)
	return f.comments[s.ID], nil
}

// fakeScorer maps text to a compound score; unknown text scores 0.
type fakeScorer struct {
	scores map[string]float64
	fail   string
}

func (f fakeScorer) Score(_ context.Context, text string) (models.Sentiment, error) {
	if f.fail != "" && text == f.fail {
		return models.Sentiment{}, errors.New("scorer exploded")
	}
	c := f.scores[text]
	return models.Sentiment{Compound: c, Positive: math.Max(c, 0), Negative: math.Max(-c, 0), Neutral: 1 - math.Abs(c)}, nil
}

type memoryStore struct {
	watermarks map[string]float64
	saves      []float64
	posts      map[string]models.Post
	comments   map[string]models.Comment
	actions    map[string]models.Action
	failOn     string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		watermarks: map[string]float64{},
		posts:      map[string]models.Post{},
		comments:   map[string]models.Comment{},
		actions:    map[string]models.Action{},
	}
}

func (m *memoryStore) LoadWatermark(_ context.Context, feedID string) (float64, error) {
	return m.watermarks[feedID], nil
}

func (m *memoryStore) SaveWatermark(_ context.Context, feedID string, ts float64) error {
	m.saves = append(m.saves, ts)
	m.watermarks[feedID] = ts
	return nil
}

func (m *memoryStore) InsertPost(_ context.Context, p models.Post) (bool, error) {
	if m.failOn == "post" {
		return false, errors.New("db down")
	}
	if _, ok := m.posts[p.PostID]; ok {
		return false, nil
	}
	m.posts[p.PostID] = p
	return true, nil
}

func (m *memoryStore) InsertComment(_ context.Context, c models.Comment) (bool, error) {
	if _, ok := m.comments[c.CommentID]; ok {
		return false, nil
	}
	m.comments[c.CommentID] = c
	return true, nil
}

func (m *memoryStore) InsertAction(_ context.Context, a models.Action) (bool, error) {
	if _, ok := m.actions[a.PostID]; ok {
		return false, nil
	}
	m.actions[a.PostID] = a
	return true, nil
}

type failingBackend struct{}

func (failingBackend) Summarize(context.Context, string, summary.Options) (string, error) {
	return "", errors.New("model unavailable")
}

func newTestPipeline(feed Feed, scorer fakeScorer) *Pipeline {
	return New(
		Config{Subreddit: "wallstreetbets", FeedID: "wsb", Flair: "DD", Limit: 100},
		feed,
		scorer,
		ticker.NewResolver(ticker.NewSymbolSet("AAPL", "GME")),
		summary.New(failingBackend{}, nil),
	)
}

func testFeed() *fakeFeed {
	return &fakeFeed{
		submissions: []models.Submission{
			{ID: "p1", Title: "AAPL is great", Author: "alice", Body: "bullish body", CreatedUTC: 1700000300, CategoryLabel: "DD"},
			{ID: "p2", Title: "meme", Author: "bob", Body: "meme body", CreatedUTC: 1700000400, CategoryLabel: "Meme"},
			{ID: "p3", Title: "short $XYZ now", Author: "", Body: "bearish body", CreatedUTC: 1700000200, CategoryLabel: "DD"},
		},
		comments: map[string][]models.RedditComment{
			"p1": {
				{ID: "c1", Author: "carol", Body: "love it", HasBody: true, CreatedUTC: 1700000500},
				{ID: "c2", Author: "dave", Body: "meh", HasBody: true, CreatedUTC: 1700000600},
				{ID: "c3", Author: "erin", Body: "", HasBody: false},
				{ID: "c4", Author: "", Body: "love it too", HasBody: true, CreatedUTC: 1700000700},
			},
			"p3": {
				{ID: "c5", Body: "terrible", HasBody: true},
				{ID: "c6", Body: "slightly sad", HasBody: true},
			},
		},
	}
}

func testScorer() fakeScorer {
	return fakeScorer{scores: map[string]float64{
		"bullish body": 0.95,
		"bearish body": -0.95,
		"love it":      0.6,
		"love it too":  0.8,
		"meh":          0.05,
		"terrible":     -0.7,
		"slightly sad": -0.15,
	}}
}

func TestRunProcessesOnlyFlairedPosts(t *testing.T) {
	feed := testFeed()
	store := newMemoryStore()

	report, err := newTestPipeline(feed, testScorer()).Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Fetched != 3 || report.Matched != 2 {
		t.Errorf("Expected 3 fetched and 2 matched, got %d and %d", report.Fetched, report.Matched)
	}
	if _, ok := store.posts["p2"]; ok {
		t.Error("Post without DD flair must not be stored")
	}
	if len(feed.commentCalls) != 2 || feed.commentCalls[0] != "p1" || feed.commentCalls[1] != "p3" {
		t.Errorf("Expected comments fetched for p1 then p3, got %v", feed.commentCalls)
	}
}

func TestRunCommentMateriality(t *testing.T) {
	store := newMemoryStore()
	if _, err := newTestPipeline(testFeed(), testScorer()).Run(context.Background(), store); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, ok := store.comments["c2"]; ok {
		t.Error("Comment with compound 0.05 must not be stored")
	}
	if _, ok := store.comments["c3"]; ok {
		t.Error("Comment without body must not be stored")
	}
	if c, ok := store.comments["c6"]; !ok || c.Sentiment.Compound != -0.15 {
		t.Error("Comment with compound -0.15 must be stored")
	}
	if store.comments["c4"].Author != models.DeletedAuthor {
		t.Errorf("Expected placeholder author, got %q", store.comments["c4"].Author)
	}

	buy := store.actions["p1"]
	if math.Abs(buy.AvgCommentScore-0.7) > 1e-9 {
		t.Errorf("Expected avg 0.7 from material comments only, got %f", buy.AvgCommentScore)
	}
	if buy.Decision != models.DecisionBuy {
		t.Errorf("Expected buy, got %s", buy.Decision)
	}

	sell := store.actions["p3"]
	if math.Abs(sell.AvgCommentScore-(-0.425)) > 1e-9 {
		t.Errorf("Expected avg -0.425, got %f", sell.AvgCommentScore)
	}
	if sell.Decision != models.DecisionHold {
		t.Errorf("Expected hold, got %s", sell.Decision)
	}
}

func TestRunRecordsPostFields(t *testing.T) {
	store := newMemoryStore()
	if _, err := newTestPipeline(testFeed(), testScorer()).Run(context.Background(), store); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	p1 := store.posts["p1"]
	if p1.DetectedTicker == nil || *p1.DetectedTicker != "AAPL" {
		t.Errorf("Expected ticker AAPL, got %v", p1.DetectedTicker)
	}
	if p1.TLDR != "bullish body" {
		t.Errorf("Expected fallback summary, got %q", p1.TLDR)
	}
	if p1.CreatedUTC != models.UTCFromUnix(1700000300) {
		t.Errorf("Unexpected created time %v", p1.CreatedUTC)
	}

	p3 := store.posts["p3"]
	if p3.Author != models.DeletedAuthor {
		t.Errorf("Expected placeholder author, got %q", p3.Author)
	}
	if p3.DetectedTicker == nil || *p3.DetectedTicker != "XYZ" {
		t.Errorf("Expected ticker XYZ, got %v", p3.DetectedTicker)
	}
	if store.actions["p3"].TLDR != p3.TLDR {
		t.Error("Expected action TLDR to match the post")
	}
}

func TestRunSellDecision(t *testing.T) {
	feed := &fakeFeed{
		submissions: []models.Submission{{ID: "s1", Title: "puts", Body: "bearish body", CategoryLabel: "DD", CreatedUTC: 10}},
		comments:    map[string][]models.RedditComment{"s1": {{ID: "k1", Body: "terrible", HasBody: true}}},
	}
	store := newMemoryStore()
	if _, err := newTestPipeline(feed, testScorer()).Run(context.Background(), store); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := store.actions["s1"].Decision; got != models.DecisionSell {
		t.Errorf("Expected sell, got %s", got)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	feed := testFeed()
	store := newMemoryStore()
	p := newTestPipeline(feed, testScorer())

	first, err := p.Run(context.Background(), store)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	posts, comments, actions := len(store.posts), len(store.comments), len(store.actions)

	second, err := p.Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if len(store.posts) != posts || len(store.comments) != comments || len(store.actions) != actions {
		t.Error("Second run must not add rows")
	}
	if second.PostsInserted != 0 || second.CommentsInserted != 0 || len(second.NewActions) != 0 {
		t.Errorf("Expected no new rows on second run, got %+v", second)
	}
	if second.WatermarkAfter != first.WatermarkAfter {
		t.Errorf("Expected unchanged watermark, got %f then %f", first.WatermarkAfter, second.WatermarkAfter)
	}
	if second.Matched != 2 {
		t.Errorf("Expected every DD post reprocessed, got %d", second.Matched)
	}
	if len(first.NewActions) != 2 {
		t.Errorf("Expected 2 new actions on first run, got %d", len(first.NewActions))
	}
}

func TestRunWatermark(t *testing.T) {
	store := newMemoryStore()
	report, err := newTestPipeline(testFeed(), testScorer()).Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// p2 is newer but not DD, so it does not move the watermark.
	if report.WatermarkAfter != 1700000300 {
		t.Errorf("Expected watermark 1700000300, got %f", report.WatermarkAfter)
	}
	if len(store.saves) != 1 {
		t.Errorf("Expected exactly one watermark save, got %d", len(store.saves))
	}
}

func TestRunWatermarkNeverRegresses(t *testing.T) {
	store := newMemoryStore()
	store.watermarks["wsb"] = 1800000000
	report, err := newTestPipeline(testFeed(), testScorer()).Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.WatermarkAfter != 1800000000 {
		t.Errorf("Expected watermark to stay at 1800000000, got %f", report.WatermarkAfter)
	}
	if report.Matched != 2 {
		t.Errorf("Posts older than the watermark are still processed, got %d", report.Matched)
	}
}

func TestRunEmptyFeedSavesOriginalWatermark(t *testing.T) {
	store := newMemoryStore()
	store.watermarks["wsb"] = 42.5
	report, err := newTestPipeline(&fakeFeed{}, testScorer()).Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(store.saves) != 1 || store.saves[0] != 42.5 {
		t.Errorf("Expected original watermark saved once, got %v", store.saves)
	}
	if report.Matched != 0 {
		t.Errorf("Expected no matches, got %d", report.Matched)
	}
}

func TestRunPropagatesFailures(t *testing.T) {
	t.Run("feed", func(t *testing.T) {
		store := newMemoryStore()
		_, err := newTestPipeline(&fakeFeed{err: errors.New("auth failed")}, testScorer()).Run(context.Background(), store)
		if err == nil {
			t.Fatal("Expected feed error")
		}
		if len(store.saves) != 0 {
			t.Error("Watermark must not be saved after a failure")
		}
	})

	t.Run("scorer", func(t *testing.T) {
		scorer := testScorer()
		scorer.fail = "love it"
		store := newMemoryStore()
		if _, err := newTestPipeline(testFeed(), scorer).Run(context.Background(), store); err == nil {
			t.Fatal("Expected scorer error")
		}
		if len(store.saves) != 0 {
			t.Error("Watermark must not be saved after a failure")
		}
	})

	t.Run("store", func(t *testing.T) {
		store := newMemoryStore()
		store.failOn = "post"
		if _, err := newTestPipeline(testFeed(), testScorer()).Run(context.Background(), store); err == nil {
			t.Fatal("Expected store error")
		}
	})
}
