// Package reconcile resolves the final status of submitted records against
// the confirmation document returned by the registration service. The
// document is the authoritative source: a record missing from it is treated
// as rejected, never as accepted.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"stayreg/internal/report/models"
	"stayreg/internal/report/ports"
	dErrors "stayreg/pkg/domain-errors"
)

// ReasonNotFound marks records the confirmation document never mentioned.
const ReasonNotFound = "not found in confirmation"

// Decision is the resolved outcome for one record of a submitted batch.
type Decision struct {
	Record models.PersonRecord
	Status models.Status
	Reason string
}

// Outcome is the result of reconciling one batch against one document.
type Outcome struct {
	Summary   models.ReconciliationSummary
	Decisions []Decision
}

// Engine matches submitted records to confirmation document entries by
// surname and given name.
type Engine struct {
	extractor ports.TextExtractor
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func New(extractor ports.TextExtractor, opts ...Option) (*Engine, error) {
	if extractor == nil {
		return nil, fmt.Errorf("text extractor is required")
	}
	e := &Engine{
		extractor: extractor,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Reconcile extracts the document text, parses both sections and assigns a
// terminal status to every record of the batch. Names occurring more than
// once are claimed in batch order: each document entry marks the first still
// unclaimed record with a matching name. Records no entry claims are
// rejected with ReasonNotFound.
func (e *Engine) Reconcile(ctx context.Context, document []byte, batch []models.PersonRecord) (*Outcome, error) {
	text, err := e.extractor.ExtractText(ctx, document)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeReconciliationMismatch, "extracting confirmation text")
	}

	doc := parseDocument(text)

	decisions := make([]Decision, len(batch))
	claimed := make([]bool, len(batch))
	for i, rec := range batch {
		decisions[i] = Decision{Record: rec}
	}

	claim := func(en entry, status models.Status, reason string) bool {
		for i, rec := range batch {
			if claimed[i] {
				continue
			}
			if rec.Surname == en.Surname && rec.GivenName == en.GivenName {
				claimed[i] = true
				decisions[i].Status = status
				decisions[i].Reason = reason
				return true
			}
		}
		return false
	}

	for _, en := range doc.Accepted {
		if !claim(en, models.StatusConfirmed, "") {
			e.logger.WarnContext(ctx, "accepted entry matches no submitted record",
				"surname", en.Surname, "given_name", en.GivenName)
		}
	}
	for _, en := range doc.Rejected {
		reason := en.Reason
		if reason == "" {
			reason = "refused by registration service"
		}
		if !claim(en, models.StatusRejected, reason) {
			e.logger.WarnContext(ctx, "rejected entry matches no submitted record",
				"surname", en.Surname, "given_name", en.GivenName)
		}
	}

	var mismatches int
	for i := range decisions {
		if claimed[i] {
			continue
		}
		decisions[i].Status = models.StatusRejected
		decisions[i].Reason = ReasonNotFound
		mismatches++
	}
	if mismatches > 0 {
		e.logger.WarnContext(ctx, "records missing from confirmation document",
			"count", mismatches, "batch_size", len(batch))
	}

	return &Outcome{Summary: doc.Summary, Decisions: decisions}, nil
}
