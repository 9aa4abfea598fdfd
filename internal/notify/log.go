package notify

import (
	"context"
	"log/slog"

	"github.com/example/interview-scheduler/internal/application"
)

// LogNotifier writes events to a structured logger. It is the sink used when
// no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// Notify implements application.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, event application.Event) error {
	attrs := []any{
		"event_id", event.ID,
		"event", event.Type,
		"application_id", event.ApplicationID,
		"employer_id", event.EmployerID,
		"candidate_id", event.CandidateID,
		"status", event.Status,
		"version", event.Version,
	}
	if event.Actor != "" {
		attrs = append(attrs, "actor", event.Actor)
	}
	if event.SlotIndex != nil {
		attrs = append(attrs, "slot_index", *event.SlotIndex)
	}
	n.logger.InfoContext(ctx, "interview event", attrs...)
	return nil
}
