package models

import "encoding/json"

// Thing kinds returned by the Reddit API.
const (
	KindComment = "t1"
	KindLink    = "t3"
	KindListing = "Listing"
	KindMore    = "more"
)

type RedditAPIResponse struct {
	Kind string        `json:"kind"`
	Data RedditAPIData `json:"data"`
}

type RedditAPIData struct {
	After    string           `json:"after"`
	Children []RedditAPIChild `json:"children"`
}

// RedditAPIChild keeps Data raw because links, comments and "more" stubs
// share the same envelope.
type RedditAPIChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type RedditAPILinkData struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Subreddit     string  `json:"subreddit"`
	Author        string  `json:"author"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	LinkFlairText *string `json:"link_flair_text"`
	CreatedUTC    float64 `json:"created_utc"`
	NumComments   int     `json:"num_comments"`
}

type RedditAPICommentData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ParentID   string  `json:"parent_id"`
	LinkID     string  `json:"link_id"`
	Author     string  `json:"author"`
	Body       *string `json:"body"`
	CreatedUTC float64 `json:"created_utc"`
	// Replies is either an empty string or a nested Listing.
	Replies json.RawMessage `json:"replies"`
}

type RedditAPIMoreData struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Depth    int      `json:"depth"`
	Children []string `json:"children"`
}

type RedditMoreChildrenResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []RedditAPIChild `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// Submission is a post as delivered by the feed source.
type Submission struct {
	ID            string
	Title         string
	Author        string
	Body          string
	CreatedUTC    float64
	CategoryLabel string
	Subreddit     string
}

// RedditComment is a reply under a Submission. HasBody is false when the
// API delivered no body attribute at all.
type RedditComment struct {
	ID         string
	ParentID   string
	Author     string
	Body       string
	HasBody    bool
	CreatedUTC float64
}
