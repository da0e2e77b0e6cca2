package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spacesedan/ddscraper/internal/models"
	"github.com/spacesedan/ddscraper/internal/summary"
)

const HF_SUMMARY_ENDPOINT = "https://api-inference.huggingface.co/models/facebook/bart-large-cnn"

type HuggingFaceConfig struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	// Retries defaults to MAX_RETRIES; a negative value disables retries.
	Retries   int
	RetryWait time.Duration
}

// HuggingFaceClient calls a hosted BART summarisation model.
type HuggingFaceClient struct {
	Client   *resty.Client
	endpoint string
}

func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = HF_SUMMARY_ENDPOINT
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = MAX_RETRIES
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = INITIAL_BACKOFF
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", USER_AGENT).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(MAX_BACKOFF).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// health checks report the first answer
			if r != nil && r.Request != nil && r.Request.Method != http.MethodPost {
				return false
			}
			if err != nil {
				return true
			}
			// 503 while the model is loading
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.String("endpoint", cfg.Endpoint),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("retries", cfg.Retries))

	return &HuggingFaceClient{Client: client, endpoint: cfg.Endpoint}
}

func (h *HuggingFaceClient) Summarize(ctx context.Context, input string, opts summary.Options) (string, error) {
	start := time.Now()

	var result models.SummaryBatchResponse
	var hfErr models.HuggingFaceError
	resp, err := h.Client.R().
		SetContext(ctx).
		SetBody(models.SummaryRequest{
			Inputs: input,
			Parameters: models.SummaryParameters{
				MinLength: opts.MinLength,
				MaxLength: opts.MaxLength,
				DoSample:  opts.DoSample,
			},
		}).
		SetResult(&result).
		SetError(&hfErr).
		Post(h.endpoint)
	if err != nil {
		return "", fmt.Errorf("[HuggingFaceClient] summary request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("[HuggingFaceClient] summary request returned %d: %s", resp.StatusCode(), hfErr.Error)
	}
	if len(result) == 0 {
		return "", fmt.Errorf("[HuggingFaceClient] summary response was empty")
	}

	slog.Debug("[HuggingFaceClient] Summary request successful",
		slog.Duration("elapsed", time.Since(start)))
	return result[0].SummaryText, nil
}

// HealthCheck reports whether the model endpoint answers. The inference API
// replies to GET with the model status; 503 means the model is still loading,
// which the retrying POST rides out.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context) bool {
	resp, err := h.Client.R().
		SetContext(ctx).
		Get(h.endpoint)
	if err != nil {
		slog.Warn("[HuggingFaceClient] Health check failed",
			slog.String("error", err.Error()))
		return false
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusServiceUnavailable:
		return true
	default:
		slog.Warn("[HuggingFaceClient] Health check returned an error status",
			slog.Int("status", resp.StatusCode()))
		return false
	}
}
