package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	VALKEY_SUMMARY_PREFIX = "dd:summary:"
	VALKEY_SUMMARY_TTL    = 7 * 24 * time.Hour
)

type ValkeyConfig struct {
	Address  string
	Password string
	TLS      bool
}

// ValkeyClient caches summaries between runs.
type ValkeyClient struct {
	Client valkey.Client
}

func NewValkeyClient(ctx context.Context, cfg ValkeyConfig) (*ValkeyClient, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey")
	return &ValkeyClient{Client: client}, nil
}

func (vc *ValkeyClient) Close() {
	if vc != nil && vc.Client != nil {
		vc.Client.Close()
	}
}

func (vc *ValkeyClient) GetSummary(ctx context.Context, key string) (string, bool) {
	res := vc.DoWithRetry(ctx, func() valkey.Completed {
		return vc.Client.B().Get().Key(VALKEY_SUMMARY_PREFIX + key).Build()
	}, 3)

	val, err := res.ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			slog.Warn("[ValkeyClient] Summary lookup failed",
				slog.String("error", err.Error()))
		}
		return "", false
	}
	return val, true
}

func (vc *ValkeyClient) SetSummary(ctx context.Context, key, summary string) {
	fullKey := VALKEY_SUMMARY_PREFIX + key
	completed := []valkey.Completed{
		vc.Client.B().Set().Key(fullKey).Value(summary).Build(),
		vc.Client.B().Expire().Key(fullKey).Seconds(int64(VALKEY_SUMMARY_TTL / time.Second)).Build(),
	}

	for _, res := range vc.Client.DoMulti(ctx, completed...) {
		if err := res.Error(); err != nil {
			slog.Warn("[ValkeyClient] Failed to cache summary",
				slog.String("error", err.Error()))
			return
		}
	}
}

// DoWithRetry builds a fresh command per attempt; completed commands may not
// be reused once sent.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func() valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, build())
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) || !isConnectionError(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
