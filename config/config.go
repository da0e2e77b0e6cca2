package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrMissingRedditCredentials = errors.New("config: REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required")
	ErrUnknownSentimentBackend  = errors.New("config: unknown SENTIMENT_BACKEND")
	ErrUnknownSummaryBackend    = errors.New("config: unknown SUMMARY_BACKEND")
)

const (
	SentimentVader       = "vader"
	SentimentTransformer = "transformer"

	SummaryHuggingFace = "huggingface"
	SummaryOpenAI      = "openai"
	SummaryNone        = "none"
)

type RedditConfig struct {
	ClientID          string
	ClientSecret      string
	UserAgent         string
	Subreddit         string
	Flair             string
	FetchLimit        int
	MoreCommentsLimit int
	FeedID            string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	BootstrapSchema bool
}

// DSN prefers DATABASE_URL and otherwise assembles a postgres URL from the
// DB_* parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

type SentimentConfig struct {
	Backend   string
	ModelPath string
}

type SummaryConfig struct {
	Backend          string
	HFEndpoint       string
	HFToken          string
	OpenAIKey        string
	OpenAIModel      string
	ValkeyAddress    string
	ValkeyPassword   string
	ValkeyTLSEnabled bool
}

type SinkConfig struct {
	KafkaBroker   string
	KafkaTopic    string
	DynamoDBTable string
	AWSRegion     string
	AWSEndpoint   string
}

type Config struct {
	Env         string
	LogLevel    string
	TickersFile string
	Reddit      RedditConfig
	Database    DatabaseConfig
	Sentiment   SentimentConfig
	Summary     SummaryConfig
	Sinks       SinkConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDDIT_USER_AGENT", "ddscraper/1.0")
	v.SetDefault("REDDIT_SUBREDDIT", "wallstreetbets")
	v.SetDefault("REDDIT_FLAIR", "DD")
	v.SetDefault("REDDIT_FETCH_LIMIT", 100)
	v.SetDefault("REDDIT_MORE_COMMENTS_LIMIT", 32)
	v.SetDefault("SCRAPE_FEED_ID", "wsb")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_BOOTSTRAP_SCHEMA", false)
	v.SetDefault("TICKERS_FILE", "all_tickers.txt")
	v.SetDefault("SENTIMENT_BACKEND", SentimentVader)
	v.SetDefault("SUMMARY_BACKEND", SummaryHuggingFace)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("KAFKA_ACTIONS_TOPIC", "dd-actions")
	v.SetDefault("AWS_REGION", "us-east-1")
}

// Load reads configuration from the environment. Call LoadEnv first to pull
// in the .env file for the current APP_ENV.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Env:         v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		TickersFile: v.GetString("TICKERS_FILE"),
		Reddit: RedditConfig{
			ClientID:          v.GetString("REDDIT_CLIENT_ID"),
			ClientSecret:      v.GetString("REDDIT_CLIENT_SECRET"),
			UserAgent:         v.GetString("REDDIT_USER_AGENT"),
			Subreddit:         v.GetString("REDDIT_SUBREDDIT"),
			Flair:             v.GetString("REDDIT_FLAIR"),
			FetchLimit:        v.GetInt("REDDIT_FETCH_LIMIT"),
			MoreCommentsLimit: v.GetInt("REDDIT_MORE_COMMENTS_LIMIT"),
			FeedID:            v.GetString("SCRAPE_FEED_ID"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			BootstrapSchema: v.GetBool("DB_BOOTSTRAP_SCHEMA"),
		},
		Sentiment: SentimentConfig{
			Backend:   strings.ToLower(v.GetString("SENTIMENT_BACKEND")),
			ModelPath: v.GetString("SENTIMENT_MODEL_PATH"),
		},
		Summary: SummaryConfig{
			Backend:          strings.ToLower(v.GetString("SUMMARY_BACKEND")),
			HFEndpoint:       v.GetString("HF_SUMMARY_ENDPOINT"),
			HFToken:          v.GetString("HF_API_TOKEN"),
			OpenAIKey:        v.GetString("OPENAI_API_KEY"),
			OpenAIModel:      v.GetString("OPENAI_MODEL"),
			ValkeyAddress:    v.GetString("VALKEY_INIT_ADDRESS"),
			ValkeyPassword:   v.GetString("VALKEY_PASSWORD"),
			ValkeyTLSEnabled: v.GetBool("VALKEY_TLS"),
		},
		Sinks: SinkConfig{
			KafkaBroker:   v.GetString("KAFKA_BROKER"),
			KafkaTopic:    v.GetString("KAFKA_ACTIONS_TOPIC"),
			DynamoDBTable: v.GetString("DYNAMODB_ACTIONS_TABLE"),
			AWSRegion:     v.GetString("AWS_REGION"),
			AWSEndpoint:   v.GetString("AWS_ENDPOINT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		return ErrMissingRedditCredentials
	}
	switch c.Sentiment.Backend {
	case SentimentVader, SentimentTransformer:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSentimentBackend, c.Sentiment.Backend)
	}
	if c.Sentiment.Backend == SentimentTransformer && c.Sentiment.ModelPath == "" {
		return errors.New("config: SENTIMENT_MODEL_PATH is required for the transformer backend")
	}
	switch c.Summary.Backend {
	case SummaryHuggingFace, SummaryNone:
	case SummaryOpenAI:
		if c.Summary.OpenAIKey == "" {
			return errors.New("config: OPENAI_API_KEY is required for the openai summary backend")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSummaryBackend, c.Summary.Backend)
	}
	if c.Reddit.FetchLimit <= 0 {
		return fmt.Errorf("config: REDDIT_FETCH_LIMIT must be positive, got %d", c.Reddit.FetchLimit)
	}
	return nil
}
