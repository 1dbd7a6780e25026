package notify

import (
	"context"
	"log/slog"
)

// LogDispatcher writes every notification to the structured log.
type LogDispatcher struct{}

func (LogDispatcher) Name() string { return "log" }

func (LogDispatcher) Send(ctx context.Context, n Notification) error {
	slog.Info("notification",
		"title", n.Title,
		"body", n.Body,
		"priority", n.Priority,
		"hazard_id", n.HazardID,
		"hazard_type", n.HazardType,
	)
	return nil
}
