package monitoring

import (
	"context"
	"log/slog"
	"time"
)

const HEALTHCHECK_TIMEOUT = 15 * time.Second

// HealthChecker is implemented by backends that can be probed before a run.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// CheckSummarizer probes backend once. Backends without a probe are assumed
// healthy.
func CheckSummarizer(ctx context.Context, backend any) bool {
	checker, ok := backend.(HealthChecker)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, HEALTHCHECK_TIMEOUT)
	defer cancel()

	healthy := checker.HealthCheck(ctx)
	if !healthy {
		slog.Warn("[HealthCheck] Summarizer is unhealthy")
	}
	return healthy
}
