package person

import (
	"context"
	"sort"
	"sync"
	"time"

	"stayreg/internal/report/models"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/sentinel"
)

// InMemory is the in-memory person store, used in tests and dry runs. It
// enforces the same invariants as the Postgres store: unique identity key on
// insert, terminal statuses immutable.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.IdentityKey]*models.StoredRecord
	clock   func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.IdentityKey]*models.StoredRecord),
		clock:   time.Now,
	}
}

// WithClock overrides the store clock for tests.
func (s *InMemory) WithClock(clock func() time.Time) *InMemory {
	s.clock = clock
	return s
}

func (s *InMemory) Exists(_ context.Context, key id.IdentityKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok, nil
}

func (s *InMemory) Persist(_ context.Context, record *models.StoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.Key()
	if _, exists := s.records[key]; exists {
		return sentinel.ErrConflict
	}

	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock()
	}
	s.records[key] = &stored
	return nil
}

func (s *InMemory) UpdateStatus(_ context.Context, key id.IdentityKey, status models.Status, reason, documentPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !record.Status.CanTransitionTo(status) {
		return sentinel.ErrInvalidState
	}

	now := s.clock()
	record.Status = status
	record.Reason = reason
	record.DocumentPath = documentPath
	record.ResolvedAt = &now
	return nil
}

func (s *InMemory) Pending(_ context.Context) ([]*models.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*models.StoredRecord
	for _, record := range s.records {
		if record.Status == models.StatusPending {
			copied := *record
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (s *InMemory) All(_ context.Context) ([]*models.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.StoredRecord, 0, len(s.records))
	for _, record := range s.records {
		copied := *record
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}
