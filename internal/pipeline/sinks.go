package pipeline

import (
	"context"
	"log/slog"

	"github.com/spacesedan/ddscraper/internal/models"
)

// ActionSink receives actions after they have been committed.
type ActionSink interface {
	Name() string
	PublishActions(ctx context.Context, actions []models.Action) error
}

// PublishActions fans actions out to every sink. Sink failures are logged
// and do not affect the run.
func PublishActions(ctx context.Context, sinks []ActionSink, actions []models.Action) {
	if len(actions) == 0 {
		return
	}
	for _, sink := range sinks {
		if err := sink.PublishActions(ctx, actions); err != nil {
			slog.Warn("[Pipeline] Failed to publish actions",
				slog.String("sink", sink.Name()),
				slog.Int("count", len(actions)),
				slog.String("error", err.Error()))
			continue
		}
		slog.Info("[Pipeline] Published actions",
			slog.String("sink", sink.Name()),
			slog.Int("count", len(actions)))
	}
}
