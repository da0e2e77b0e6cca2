package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/ddscraper/internal/models"
	"github.com/spacesedan/ddscraper/internal/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"

	moreChildrenBatch = 100
)

var ErrRedditUnauthorized = errors.New("reddit: unauthorized")

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	// MoreChildrenLimit bounds /api/morechildren calls per submission.
	// Stubs beyond the budget are dropped.
	MoreChildrenLimit int
}

type RedditClient struct {
	Config            *clientcredentials.Config
	Client            *http.Client
	BaseURL           string
	UserAgent         string
	MoreChildrenLimit int

	mu    sync.Mutex
	sleep func(time.Duration)
}

func NewRedditClient(cfg RedditConfig) *RedditClient {
	oauthConf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     REDDIT_AUTH_URL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	rc := NewRedditClientWithHTTP(REDDIT_API_URL, oauthConf.Client(context.Background()), cfg)
	rc.Config = oauthConf
	return rc
}

// NewRedditClientWithHTTP skips OAuth and talks to baseURL with httpClient.
func NewRedditClientWithHTTP(baseURL string, httpClient *http.Client, cfg RedditConfig) *RedditClient {
	ua := cfg.UserAgent
	if ua == "" {
		ua = USER_AGENT
	}
	return &RedditClient{
		Client:            httpClient,
		BaseURL:           strings.TrimRight(baseURL, "/"),
		UserAgent:         ua,
		MoreChildrenLimit: cfg.MoreChildrenLimit,
		sleep:             time.Sleep,
	}
}

func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.Config == nil {
		return
	}
	rc.Client = rc.Config.Client(context.Background())
}

func (rc *RedditClient) httpClient() *http.Client {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.Client
}

// FetchNewSubmissions returns up to limit of the newest submissions in the
// subreddit, newest first.
func (rc *RedditClient) FetchNewSubmissions(ctx context.Context, subreddit string, limit int) ([]models.Submission, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")

	var listing models.RedditAPIResponse
	if err := rc.getJSON(ctx, fmt.Sprintf("/r/%s/new", url.PathEscape(subreddit)), query, &listing); err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to fetch r/%s/new: %w", subreddit, err)
	}

	submissions := make([]models.Submission, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != models.KindLink {
			continue
		}
		var link models.RedditAPILinkData
		if err := json.Unmarshal(child.Data, &link); err != nil {
			return nil, fmt.Errorf("[RedditClient] failed to decode submission: %w", err)
		}
		submissions = append(submissions, linkToSubmission(link))
	}

	slog.Debug("[RedditClient] Fetched submissions",
		slog.String("subreddit", subreddit),
		slog.Int("count", len(submissions)))
	return submissions, nil
}

// FetchComments returns every comment under the submission, depth first in
// feed order, with "load more" stubs expanded while the budget lasts.
func (rc *RedditClient) FetchComments(ctx context.Context, submission models.Submission) ([]models.RedditComment, error) {
	query := url.Values{}
	query.Set("raw_json", "1")
	query.Set("limit", "500")

	var listings []models.RedditAPIResponse
	if err := rc.getJSON(ctx, "/comments/"+url.PathEscape(submission.ID), query, &listings); err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to fetch comments for %s: %w", submission.ID, err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	w := &commentWalker{
		rc:     rc,
		linkID: models.KindLink + "_" + submission.ID,
		budget: rc.MoreChildrenLimit,
	}
	if err := w.walk(ctx, listings[1].Data.Children); err != nil {
		return nil, err
	}
	return w.out, nil
}

type commentWalker struct {
	rc     *RedditClient
	linkID string
	budget int
	out    []models.RedditComment
}

func (w *commentWalker) walk(ctx context.Context, children []models.RedditAPIChild) error {
	for _, child := range children {
		switch child.Kind {
		case models.KindComment:
			var data models.RedditAPICommentData
			if err := json.Unmarshal(child.Data, &data); err != nil {
				return fmt.Errorf("[RedditClient] failed to decode comment: %w", err)
			}
			w.out = append(w.out, commentFromData(data))

			replies, ok := decodeReplies(data.Replies)
			if ok {
				if err := w.walk(ctx, replies.Data.Children); err != nil {
					return err
				}
			}

		case models.KindMore:
			var more models.RedditAPIMoreData
			if err := json.Unmarshal(child.Data, &more); err != nil {
				return fmt.Errorf("[RedditClient] failed to decode more stub: %w", err)
			}
			if err := w.expand(ctx, more); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *commentWalker) expand(ctx context.Context, more models.RedditAPIMoreData) error {
	// "continue this thread" stubs carry no ids
	if len(more.Children) == 0 {
		return nil
	}

	for _, ids := range utils.Chunk(more.Children, moreChildrenBatch) {
		if w.budget <= 0 {
			slog.Debug("[RedditClient] More-comments budget exhausted, dropping stub",
				slog.String("link_id", w.linkID),
				slog.String("parent_id", more.ParentID))
			return nil
		}
		w.budget--

		things, err := w.rc.fetchMoreChildren(ctx, w.linkID, ids)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("[RedditClient] Failed to expand more comments, skipping",
				slog.String("link_id", w.linkID),
				slog.String("error", err.Error()))
			continue
		}
		if err := w.walk(ctx, things); err != nil {
			return err
		}
	}
	return nil
}

func (rc *RedditClient) fetchMoreChildren(ctx context.Context, linkID string, ids []string) ([]models.RedditAPIChild, error) {
	query := url.Values{}
	query.Set("api_type", "json")
	query.Set("link_id", linkID)
	query.Set("children", strings.Join(ids, ","))
	query.Set("raw_json", "1")

	var resp models.RedditMoreChildrenResponse
	if err := rc.getJSON(ctx, "/api/morechildren", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.JSON.Errors) > 0 {
		return nil, fmt.Errorf("morechildren returned errors: %v", resp.JSON.Errors)
	}
	return resp.JSON.Data.Things, nil
}

func (rc *RedditClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := rc.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	backoff := INITIAL_BACKOFF
	refreshed := false

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", rc.UserAgent)

		resp, err := rc.httpClient().Do(req)
		if err != nil {
			return err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return readErr
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed || rc.Config == nil {
				return ErrRedditUnauthorized
			}
			slog.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
			rc.RefreshClient()
			refreshed = true
			continue

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if attempt >= MAX_RETRIES {
				return fmt.Errorf("[RedditClient] Max retries reached, last status %d", resp.StatusCode)
			}
			slog.Warn("[RedditClient] Retrying request",
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff))
			rc.sleep(backoff)
			backoff = min(backoff*2, MAX_BACKOFF)
			continue

		default:
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}
	}
}

func linkToSubmission(link models.RedditAPILinkData) models.Submission {
	var flair string
	if link.LinkFlairText != nil {
		flair = *link.LinkFlairText
	}
	return models.Submission{
		ID:            link.ID,
		Title:         link.Title,
		Author:        link.Author,
		Body:          link.Selftext,
		CreatedUTC:    link.CreatedUTC,
		CategoryLabel: flair,
		Subreddit:     link.Subreddit,
	}
}

func commentFromData(data models.RedditAPICommentData) models.RedditComment {
	c := models.RedditComment{
		ID:         data.ID,
		ParentID:   data.ParentID,
		Author:     data.Author,
		CreatedUTC: data.CreatedUTC,
	}
	if data.Body != nil {
		c.Body = *data.Body
		c.HasBody = true
	}
	return c
}

func decodeReplies(raw json.RawMessage) (models.RedditAPIResponse, bool) {
	var replies models.RedditAPIResponse
	if len(raw) == 0 || raw[0] != '{' {
		return replies, false
	}
	if err := json.Unmarshal(raw, &replies); err != nil {
		return replies, false
	}
	return replies, true
}
