// Package audit defines the submission lifecycle audit events and their
// publishers. Events are emitted from domain logic and fanned out to sinks;
// the submission ledger, not this package, is the durable source of truth.
package audit

import (
	"context"
	"time"
)

// Action names the audited operation.
type Action string

const (
	ActionBatchSubmitted   Action = "batch_submitted"
	ActionBatchCallFailed  Action = "batch_call_failed"
	ActionRecordConfirmed  Action = "record_confirmed"
	ActionRecordRejected   Action = "record_rejected"
	ActionDuplicateSkipped Action = "duplicate_skipped"
	ActionRecoveryStarted  Action = "recovery_started"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`

	// IdentityKey is the affected person's key ("passport/DDMMYYYY"),
	// empty for batch-level events.
	IdentityKey string `json:"identity_key,omitempty"`

	BatchID string `json:"batch_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// Publisher sends events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Noop discards all events. Used when no sink is configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) error { return nil }
