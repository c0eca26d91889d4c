// Package ledger stores submission transactions. The ledger is append-only:
// new facts are appended, old facts never overwritten or deleted.
package ledger

import (
	"context"
	"sort"
	"sync"

	"stayreg/internal/report/models"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/sentinel"
)

type InMemory struct {
	mu  sync.RWMutex
	txs []*models.SubmissionTransaction
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, tx *models.SubmissionTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.txs {
		if existing.ID == tx.ID {
			return sentinel.ErrConflict
		}
	}
	copied := *tx
	copied.Keys = append([]id.IdentityKey(nil), tx.Keys...)
	s.txs = append(s.txs, &copied)
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.SubmissionTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.SubmissionTransaction, 0, len(s.txs))
	for _, tx := range s.txs {
		copied := *tx
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
