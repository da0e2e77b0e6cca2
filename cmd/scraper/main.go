package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spacesedan/ddscraper/config"
	"github.com/spacesedan/ddscraper/internal/clients"
	"github.com/spacesedan/ddscraper/internal/clients/kafka_client"
	"github.com/spacesedan/ddscraper/internal/db"
	"github.com/spacesedan/ddscraper/internal/logging"
	"github.com/spacesedan/ddscraper/internal/monitoring"
	"github.com/spacesedan/ddscraper/internal/pipeline"
	"github.com/spacesedan/ddscraper/internal/sentiment"
	"github.com/spacesedan/ddscraper/internal/summary"
	"github.com/spacesedan/ddscraper/internal/ticker"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		logging.InitLogger("info")
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("[Main] Scrape failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	symbols, err := ticker.LoadSymbols(cfg.TickersFile)
	if err != nil {
		return err
	}

	scorer, closeScorer, err := buildScorer(cfg.Sentiment)
	if err != nil {
		return err
	}
	defer closeScorer()

	summarizer, closeSummarizer, err := buildSummarizer(ctx, cfg.Summary)
	if err != nil {
		return err
	}
	defer closeSummarizer()

	reddit := clients.NewRedditClient(clients.RedditConfig{
		ClientID:          cfg.Reddit.ClientID,
		ClientSecret:      cfg.Reddit.ClientSecret,
		UserAgent:         cfg.Reddit.UserAgent,
		MoreChildrenLimit: cfg.Reddit.MoreCommentsLimit,
	})

	pg, err := clients.NewPostgres(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pg.Close()

	tx, err := pg.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(tx)

	repo := db.NewRepository(tx)
	if cfg.Database.BootstrapSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	p := pipeline.New(pipeline.Config{
		Subreddit: cfg.Reddit.Subreddit,
		FeedID:    cfg.Reddit.FeedID,
		Flair:     cfg.Reddit.Flair,
		Limit:     cfg.Reddit.FetchLimit,
	}, reddit, scorer, ticker.NewResolver(symbols), summarizer)

	start := time.Now()
	report, err := p.Run(ctx, repo)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	slog.Info("[Main] Committed scrape",
		slog.String("run_id", report.RunID),
		slog.Int("new_actions", len(report.NewActions)),
		slog.Duration("elapsed", time.Since(start)))

	sinks, closeSinks := buildSinks(ctx, cfg.Sinks)
	defer closeSinks()
	pipeline.PublishActions(ctx, sinks, report.NewActions)
	return nil
}

func buildScorer(cfg config.SentimentConfig) (sentiment.Scorer, func(), error) {
	if cfg.Backend == config.SentimentTransformer {
		t, err := sentiment.NewTransformerScorer(cfg.ModelPath)
		if err != nil {
			return nil, nil, err
		}
		return t, func() {
			if err := t.Close(); err != nil {
				slog.Warn("[Main] Failed to close transformer session", slog.String("error", err.Error()))
			}
		}, nil
	}
	return sentiment.NewVaderScorer(), func() {}, nil
}

func buildSummarizer(ctx context.Context, cfg config.SummaryConfig) (*summary.Summarizer, func(), error) {
	var backend summary.Backend
	switch cfg.Backend {
	case config.SummaryHuggingFace:
		backend = clients.NewHuggingFaceClient(clients.HuggingFaceConfig{
			Endpoint: cfg.HFEndpoint,
			Token:    cfg.HFToken,
		})
	case config.SummaryOpenAI:
		o, err := clients.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, nil, err
		}
		backend = o
	}

	if backend != nil && !monitoring.CheckSummarizer(ctx, backend) {
		slog.Warn("[Main] Summaries will use truncation for this run",
			slog.String("backend", cfg.Backend))
		backend = nil
	}

	if backend == nil || cfg.ValkeyAddress == "" {
		return summary.New(backend, nil), func() {}, nil
	}

	cache, err := clients.NewValkeyClient(ctx, clients.ValkeyConfig{
		Address:  cfg.ValkeyAddress,
		Password: cfg.ValkeyPassword,
		TLS:      cfg.ValkeyTLSEnabled,
	})
	if err != nil {
		// The cache is optional.
		slog.Warn("[Main] Summary cache unavailable", slog.String("error", err.Error()))
		return summary.New(backend, nil), func() {}, nil
	}
	return summary.New(backend, cache), cache.Close, nil
}

func buildSinks(ctx context.Context, cfg config.SinkConfig) ([]pipeline.ActionSink, func()) {
	var sinks []pipeline.ActionSink
	var closers []func()

	if cfg.KafkaBroker != "" {
		producer, err := kafka_client.NewActionProducer(kafka_client.KafkaConfig{
			Broker: cfg.KafkaBroker,
			Topic:  cfg.KafkaTopic,
		})
		if err != nil {
			slog.Warn("[Main] Kafka sink disabled", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, producer)
			closers = append(closers, producer.Close)
		}
	}

	if cfg.DynamoDBTable != "" {
		client, err := clients.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			slog.Warn("[Main] DynamoDB sink disabled", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, db.NewDynamoActionStore(client, cfg.DynamoDBTable))
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

type rollbacker interface {
	Rollback(ctx context.Context) error
}

// rollback discards an uncommitted transaction. After Commit it sees
// pgx.ErrTxClosed, which is expected.
func rollback(tx rollbacker) error {
	err := tx.Rollback(context.Background())
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	slog.Warn("[Main] Failed to roll back transaction", slog.String("error", err.Error()))
	return err
}
