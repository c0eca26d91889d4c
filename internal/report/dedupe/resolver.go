// Package dedupe holds the identity and deduplication resolver. It is the
// system's idempotency gate: a person is submitted to the remote service at
// most once, ever, keyed by (passport number, birth date).
package dedupe

import (
	"context"
	"fmt"
	"log/slog"

	"stayreg/internal/report/metrics"
	"stayreg/internal/report/models"
	"stayreg/internal/report/ports"
	dErrors "stayreg/pkg/domain-errors"
	"stayreg/pkg/platform/audit"
)

// Partition is the outcome of one dedup pass over admissible records.
type Partition struct {
	// New holds records whose identity key is absent from the store, in
	// their original order.
	New []models.PersonRecord

	// Known holds records already present: silently skipped, never
	// re-submitted, never updated.
	Known []models.PersonRecord
}

type Resolver struct {
	store   ports.PersonStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   ports.AuditPublisher
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(r *Resolver) { r.audit = publisher }
}

func New(store ports.PersonStore, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("person store is required")
	}
	r := &Resolver{
		store:  store,
		logger: slog.Default(),
		audit:  audit.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Partition splits admissible records into new and already-known. Duplicates
// within the input itself count as known after their first occurrence, so the
// same person listed twice on one sheet is still submitted once.
func (r *Resolver) Partition(ctx context.Context, records []models.PersonRecord) (*Partition, error) {
	part := &Partition{}
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		key := rec.Key()
		if _, dup := seen[key.String()]; dup {
			r.skip(ctx, rec)
			part.Known = append(part.Known, rec)
			continue
		}
		seen[key.String()] = struct{}{}

		exists, err := r.store.Exists(ctx, key)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
		}
		if exists {
			r.skip(ctx, rec)
			part.Known = append(part.Known, rec)
			continue
		}
		part.New = append(part.New, rec)
	}

	r.logger.InfoContext(ctx, "dedup pass complete",
		"checked", len(records),
		"new", len(part.New),
		"skipped", len(part.Known),
	)
	return part, nil
}

func (r *Resolver) skip(ctx context.Context, rec models.PersonRecord) {
	// DuplicateSkip is not an error: expected, logged for visibility.
	r.logger.InfoContext(ctx, "already registered, skipping",
		"person", rec.FullName(),
		"key", rec.Key().String(),
	)
	if r.metrics != nil {
		r.metrics.IncrementDuplicatesSkipped()
	}
	_ = r.audit.Emit(ctx, audit.Event{
		Action:      audit.ActionDuplicateSkipped,
		IdentityKey: rec.Key().String(),
	})
}
