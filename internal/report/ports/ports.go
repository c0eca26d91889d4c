// Package ports defines shared interfaces for the report module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"strings"

	"stayreg/internal/report/models"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/audit"
)

// RowSource yields an ordered sequence of raw field-name -> text mappings,
// one per candidate person. Spreadsheet mechanics live behind this interface.
type RowSource interface {
	// Headers returns the source column headers in source order.
	Headers(ctx context.Context) ([]string, error)

	// Rows returns all data rows in source order.
	Rows(ctx context.Context) ([]models.RawRow, error)
}

// PersonStore is the identity store. It must guarantee the unique-key
// invariant on (passport number, birth date) at the storage layer: a
// duplicate insert returns sentinel.ErrConflict.
type PersonStore interface {
	// Exists reports whether the identity key is already present.
	Exists(ctx context.Context, key id.IdentityKey) (bool, error)

	// Persist inserts a new record. Duplicate keys are refused.
	Persist(ctx context.Context, record *models.StoredRecord) error

	// UpdateStatus resolves a PENDING record to a terminal status with a
	// reason and confirmation document path. Terminal records are immutable:
	// attempts to move them again return sentinel.ErrInvalidState.
	UpdateStatus(ctx context.Context, key id.IdentityKey, status models.Status, reason, documentPath string) error

	// Pending returns all records still awaiting an outcome, oldest first.
	// Used by the startup recovery pass.
	Pending(ctx context.Context) ([]*models.StoredRecord, error)

	// All returns every record, newest first. Read-only reporting view.
	All(ctx context.Context) ([]*models.StoredRecord, error)
}

// LedgerStore is the append-only submission transaction log.
// Transactions are never edited or deleted.
type LedgerStore interface {
	Append(ctx context.Context, tx *models.SubmissionTransaction) error

	// List returns transactions ordered by timestamp descending.
	List(ctx context.Context) ([]*models.SubmissionTransaction, error)
}

// DocumentStore persists confirmation documents and returns their path.
type DocumentStore interface {
	Save(ctx context.Context, data []byte) (string, error)
}

// SubmissionResult is the payload of a remote call that reached the service.
type SubmissionResult struct {
	// ConfirmationPayload is the base64-encoded confirmation document.
	ConfirmationPayload string

	// HeaderErrors carries the service's semicolon-separated header error
	// codes. Codes starting with '1' are critical, '2' are warnings.
	HeaderErrors string

	// RecordErrors carries per-record error code strings, same severity rule.
	RecordErrors []string

	// Raw request/response snapshots for the audit trail.
	RequestSnapshot  string
	ResponseSnapshot string
}

// Critical reports whether any header or record error code is critical,
// in which case the call counts as failed despite the transport succeeding.
func (r *SubmissionResult) Critical() bool {
	if hasCriticalCode(r.HeaderErrors) {
		return true
	}
	for _, rec := range r.RecordErrors {
		if hasCriticalCode(rec) {
			return true
		}
	}
	return false
}

func hasCriticalCode(codes string) bool {
	for _, c := range strings.Split(codes, ";") {
		if strings.HasPrefix(strings.TrimSpace(c), "1") {
			return true
		}
	}
	return false
}

// Submitter is the remote submission capability: a blocking, all-or-nothing
// call per batch of at most the protocol's group size. A non-nil error means
// the call never produced a usable result (transport failure).
type Submitter interface {
	Submit(ctx context.Context, batch []models.PersonRecord) (*SubmissionResult, error)
}

// TextExtractor pulls the text stream out of a confirmation document in page
// order. Document format mechanics (PDF decoding) live behind this interface.
type TextExtractor interface {
	ExtractText(ctx context.Context, document []byte) (string, error)
}

// AuditPublisher emits audit events for submission lifecycle actions.
// The ledger remains the durable source of truth; publishers are fan-out only.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
