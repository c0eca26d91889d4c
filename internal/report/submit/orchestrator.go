// Package submit drives batched submission of admitted records to the
// registration service and resolves their final status from the returned
// confirmation document.
package submit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stayreg/internal/report/metrics"
	"stayreg/internal/report/models"
	"stayreg/internal/report/ports"
	"stayreg/internal/report/reconcile"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/audit"
	"stayreg/pkg/platform/sentinel"
)

// DefaultBatchSize is the protocol's hard cap on records per remote call.
const DefaultBatchSize = 32

// Rejection reasons written by the orchestrator itself.
const (
	// ReasonCallFailure marks records of a batch whose remote call failed,
	// either at the transport level or with a critical error code.
	ReasonCallFailure = "call failure"

	// ReasonUnreadableDocument marks records whose call succeeded but whose
	// confirmation document could not be decoded or read. Without readable
	// evidence every record of the batch is rejected.
	ReasonUnreadableDocument = "confirmation document unreadable"
)

// Orchestrator submits records in groups and reconciles each group against
// its confirmation document. Groups are fully independent: one failed call
// never touches records of another group.
type Orchestrator struct {
	submitter ports.Submitter
	persons   ports.PersonStore
	ledger    ports.LedgerStore
	documents ports.DocumentStore
	engine    *reconcile.Engine

	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     ports.AuditPublisher
	batchSize int
	clock     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(o *Orchestrator) { o.audit = publisher }
}

// WithBatchSize overrides the group size. Values above the protocol cap or
// below one are rejected by New.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) { o.batchSize = n }
}

func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

func New(submitter ports.Submitter, persons ports.PersonStore, ledger ports.LedgerStore, documents ports.DocumentStore, engine *reconcile.Engine, opts ...Option) (*Orchestrator, error) {
	if submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}
	if persons == nil {
		return nil, fmt.Errorf("person store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if documents == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("reconcile engine is required")
	}
	o := &Orchestrator{
		submitter: submitter,
		persons:   persons,
		ledger:    ledger,
		documents: documents,
		engine:    engine,
		logger:    slog.Default(),
		audit:     audit.Noop{},
		batchSize: DefaultBatchSize,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.batchSize < 1 || o.batchSize > DefaultBatchSize {
		return nil, fmt.Errorf("batch size %d outside 1..%d", o.batchSize, DefaultBatchSize)
	}
	return o, nil
}

// Submit persists every record as PENDING, then submits them in groups of at
// most the batch size and resolves each group from its confirmation document.
// Records are durable before the first remote call so that a crash mid-run
// leaves them recoverable, never silently lost.
func (o *Orchestrator) Submit(ctx context.Context, records []models.PersonRecord) (*models.RunReport, error) {
	report := &models.RunReport{}
	if len(records) == 0 {
		return report, nil
	}

	fresh := make([]models.PersonRecord, 0, len(records))
	for _, rec := range records {
		stored := &models.StoredRecord{
			PersonRecord: rec,
			Status:       models.StatusPending,
			CreatedAt:    o.clock(),
		}
		if err := o.persons.Persist(ctx, stored); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// already persisted, possibly terminal; the recovery pass
				// resubmits it if it is still pending
				o.logger.WarnContext(ctx, "record already persisted, not resubmitting", "key", rec.Key().String())
				continue
			}
			return report, fmt.Errorf("persisting record %s: %w", rec.Key().String(), err)
		}
		fresh = append(fresh, rec)
	}

	return report, o.drive(ctx, fresh, report)
}

// Recover re-drives records left PENDING by an interrupted run. Records are
// already persisted, so they go straight to submission.
func (o *Orchestrator) Recover(ctx context.Context) (*models.RunReport, error) {
	pending, err := o.persons.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pending records: %w", err)
	}
	report := &models.RunReport{}
	if len(pending) == 0 {
		return report, nil
	}

	o.logger.InfoContext(ctx, "recovering pending records", "count", len(pending))
	o.emit(ctx, audit.Event{Action: audit.ActionRecoveryStarted, Count: len(pending)})

	records := make([]models.PersonRecord, len(pending))
	for i, stored := range pending {
		records[i] = stored.PersonRecord
	}
	return report, o.drive(ctx, records, report)
}

// drive submits records group by group. A canceled context stops between
// groups; per-group failures are absorbed into the report.
func (o *Orchestrator) drive(ctx context.Context, records []models.PersonRecord, report *models.RunReport) error {
	report.Submitted = len(records)
	for start := 0; start < len(records); start += o.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+o.batchSize, len(records))
		o.submitGroup(ctx, records[start:end], report)
	}
	return nil
}

func (o *Orchestrator) submitGroup(ctx context.Context, group []models.PersonRecord, report *models.RunReport) {
	batchID := id.NewBatchID()
	logger := o.logger.With("batch_id", batchID.String(), "size", len(group))

	result, err := o.submitter.Submit(ctx, group)
	if err != nil {
		logger.ErrorContext(ctx, "remote call failed", "error", err)
		o.failGroup(ctx, batchID, group, report, err.Error(), nil)
		return
	}
	if result.Critical() {
		logger.ErrorContext(ctx, "remote call returned critical error codes",
			"header_errors", result.HeaderErrors)
		o.failGroup(ctx, batchID, group, report, "critical error codes: "+result.HeaderErrors, result)
		return
	}
	if result.HeaderErrors != "" {
		logger.WarnContext(ctx, "remote call returned warnings", "header_errors", result.HeaderErrors)
	}

	document, err := base64.StdEncoding.DecodeString(result.ConfirmationPayload)
	if err != nil {
		logger.ErrorContext(ctx, "confirmation payload does not decode", "error", err)
		o.failGroupWithReason(ctx, batchID, group, report,
			"decoding confirmation payload: "+err.Error(), result, ReasonUnreadableDocument)
		return
	}

	docPath, err := o.documents.Save(ctx, document)
	if err != nil {
		// the run continues; the ledger row records the missing evidence
		logger.ErrorContext(ctx, "saving confirmation document", "error", err)
		docPath = ""
	}

	if err := o.ledger.Append(ctx, &models.SubmissionTransaction{
		ID:               id.NewTransactionID(),
		BatchID:          batchID,
		Timestamp:        o.clock(),
		Keys:             keys(group),
		Success:          true,
		DocumentPath:     docPath,
		RequestSnapshot:  result.RequestSnapshot,
		ResponseSnapshot: result.ResponseSnapshot,
	}); err != nil {
		logger.ErrorContext(ctx, "appending ledger transaction", "error", err)
	}
	if o.metrics != nil {
		o.metrics.IncrementBatchesSubmitted()
	}
	o.emit(ctx, audit.Event{Action: audit.ActionBatchSubmitted, BatchID: batchID.String(), Count: len(group)})

	outcome, err := o.engine.Reconcile(ctx, document, group)
	if err != nil {
		logger.ErrorContext(ctx, "reconciliation failed", "error", err)
		o.rejectGroup(ctx, group, report, ReasonUnreadableDocument, docPath)
		return
	}
	if outcome.Summary.Total > 0 && outcome.Summary.Total != len(group) {
		logger.WarnContext(ctx, "confirmation record count differs from batch size",
			"document_total", outcome.Summary.Total)
	}

	for _, d := range outcome.Decisions {
		o.resolve(ctx, d.Record, d.Status, d.Reason, docPath, report)
	}
	logger.InfoContext(ctx, "batch reconciled",
		"confirmed", outcome.Summary.Accepted, "rejected", outcome.Summary.Rejected)
}

// failGroup handles a failed remote call: a failure transaction in the
// ledger, then every record of the group rejected.
func (o *Orchestrator) failGroup(ctx context.Context, batchID id.BatchID, group []models.PersonRecord, report *models.RunReport, errorText string, result *ports.SubmissionResult) {
	o.failGroupWithReason(ctx, batchID, group, report, errorText, result, ReasonCallFailure)
}

func (o *Orchestrator) failGroupWithReason(ctx context.Context, batchID id.BatchID, group []models.PersonRecord, report *models.RunReport, errorText string, result *ports.SubmissionResult, reason string) {
	tx := &models.SubmissionTransaction{
		ID:        id.NewTransactionID(),
		BatchID:   batchID,
		Timestamp: o.clock(),
		Keys:      keys(group),
		Success:   false,
		ErrorText: errorText,
	}
	if result != nil {
		tx.RequestSnapshot = result.RequestSnapshot
		tx.ResponseSnapshot = result.ResponseSnapshot
	}
	if err := o.ledger.Append(ctx, tx); err != nil {
		o.logger.ErrorContext(ctx, "appending ledger transaction", "error", err)
	}

	if o.metrics != nil {
		o.metrics.IncrementRemoteCallFailures()
	}
	report.RemoteCallFailures++
	o.emit(ctx, audit.Event{
		Action:  audit.ActionBatchCallFailed,
		BatchID: batchID.String(),
		Reason:  errorText,
		Count:   len(group),
	})
	o.rejectGroup(ctx, group, report, reason, "")
}

func (o *Orchestrator) rejectGroup(ctx context.Context, group []models.PersonRecord, report *models.RunReport, reason, docPath string) {
	for _, rec := range group {
		o.resolve(ctx, rec, models.StatusRejected, reason, docPath, report)
	}
}

// resolve moves one record to its terminal status and records the outcome.
// Records already terminal (a recovery overlap) are left untouched.
func (o *Orchestrator) resolve(ctx context.Context, rec models.PersonRecord, status models.Status, reason, docPath string, report *models.RunReport) {
	key := rec.Key()
	if err := o.persons.UpdateStatus(ctx, key, status, reason, docPath); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			o.logger.WarnContext(ctx, "record already resolved", "key", key.String())
		case errors.Is(err, sentinel.ErrNotFound):
			o.logger.ErrorContext(ctx, "record missing from store", "key", key.String())
		default:
			o.logger.ErrorContext(ctx, "updating record status", "key", key.String(), "error", err)
		}
		return
	}

	switch status {
	case models.StatusConfirmed:
		report.Confirmed++
		if o.metrics != nil {
			o.metrics.IncrementRecordsConfirmed()
		}
		o.emit(ctx, audit.Event{Action: audit.ActionRecordConfirmed, IdentityKey: key.String()})
	case models.StatusRejected:
		report.Rejected++
		if o.metrics != nil {
			o.metrics.IncrementRecordsRejected()
			if reason == reconcile.ReasonNotFound {
				o.metrics.IncrementReconciliationMismatches()
			}
		}
		o.emit(ctx, audit.Event{Action: audit.ActionRecordRejected, IdentityKey: key.String(), Reason: reason})
	}
}

func (o *Orchestrator) emit(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = o.clock()
	}
	if err := o.audit.Emit(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "emitting audit event", "action", string(event.Action), "error", err)
	}
}

func keys(group []models.PersonRecord) []id.IdentityKey {
	out := make([]id.IdentityKey, len(group))
	for i, rec := range group {
		out[i] = rec.Key()
	}
	return out
}
