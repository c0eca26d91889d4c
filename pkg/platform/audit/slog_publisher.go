package audit

import (
	"context"
	"log/slog"
)

// SlogPublisher writes audit events to the structured log.
type SlogPublisher struct {
	logger *slog.Logger
}

func NewSlogPublisher(logger *slog.Logger) *SlogPublisher {
	return &SlogPublisher{logger: logger}
}

func (p *SlogPublisher) Emit(ctx context.Context, event Event) error {
	if p.logger == nil {
		return nil
	}
	p.logger.InfoContext(ctx, "audit",
		"action", string(event.Action),
		"identity_key", event.IdentityKey,
		"batch_id", event.BatchID,
		"reason", event.Reason,
		"count", event.Count,
	)
	return nil
}
