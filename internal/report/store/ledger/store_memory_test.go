package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stayreg/internal/report/models"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/sentinel"
)

type LedgerSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *LedgerSuite) transaction(ts time.Time) *models.SubmissionTransaction {
	return &models.SubmissionTransaction{
		ID:        id.NewTransactionID(),
		BatchID:   id.NewBatchID(),
		Timestamp: ts,
		Keys: []id.IdentityKey{
			{PassportNumber: "AB1234567", BirthDate: "01011990"},
		},
		Success: true,
	}
}

func (s *LedgerSuite) TestAppend_DuplicateIDRefused() {
	tx := s.transaction(time.Now())
	s.Require().NoError(s.store.Append(s.ctx, tx))

	err := s.store.Append(s.ctx, tx)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *LedgerSuite) TestList_NewestFirst() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oldest := s.transaction(base)
	middle := s.transaction(base.Add(time.Minute))
	newest := s.transaction(base.Add(2 * time.Minute))

	for _, tx := range []*models.SubmissionTransaction{middle, oldest, newest} {
		s.Require().NoError(s.store.Append(s.ctx, tx))
	}

	txs, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(txs, 3)
	s.Equal(newest.ID, txs[0].ID)
	s.Equal(middle.ID, txs[1].ID)
	s.Equal(oldest.ID, txs[2].ID)
}

func (s *LedgerSuite) TestAppend_CallerMutationDoesNotLeakIn() {
	tx := s.transaction(time.Now())
	s.Require().NoError(s.store.Append(s.ctx, tx))

	tx.Keys[0].PassportNumber = "MUTATED"
	tx.ErrorText = "mutated"

	txs, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(txs, 1)
	s.Equal("AB1234567", txs[0].Keys[0].PassportNumber)
	s.Empty(txs[0].ErrorText)
}
