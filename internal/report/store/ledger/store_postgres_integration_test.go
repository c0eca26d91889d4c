//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stayreg/internal/report/models"
	"stayreg/internal/report/store/ledger"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/sentinel"
	"stayreg/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *ledger.Postgres
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = ledger.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Init(s.ctx))
}

func (s *PostgresLedgerSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(s.ctx, "TRUNCATE TABLE submission_transactions")
	s.Require().NoError(err)
}

func (s *PostgresLedgerSuite) TestAppendAndList_RoundTrip() {
	tx := &models.SubmissionTransaction{
		ID:        id.NewTransactionID(),
		BatchID:   id.NewBatchID(),
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Keys: []id.IdentityKey{
			{PassportNumber: "PL9876543", BirthDate: "05031992"},
			{PassportNumber: "UA/123456", BirthDate: "01011990"},
		},
		Success:          true,
		DocumentPath:     "/docs/confirmation.pdf",
		RequestSnapshot:  `{"records":[]}`,
		ResponseSnapshot: `{"confirmation_pdf":"cGRm"}`,
	}
	s.Require().NoError(s.store.Append(s.ctx, tx))

	txs, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(txs, 1)

	got := txs[0]
	s.Equal(tx.ID, got.ID)
	s.Equal(tx.BatchID, got.BatchID)
	s.True(got.Success)
	s.Equal("/docs/confirmation.pdf", got.DocumentPath)

	// keys survive the round trip, slash-in-passport included
	s.Require().Len(got.Keys, 2)
	s.Equal("PL9876543", got.Keys[0].PassportNumber)
	s.Equal("UA/123456", got.Keys[1].PassportNumber)
	s.Equal("01011990", got.Keys[1].BirthDate)
}

func (s *PostgresLedgerSuite) TestAppend_DuplicateIDConflicts() {
	tx := &models.SubmissionTransaction{
		ID:        id.NewTransactionID(),
		BatchID:   id.NewBatchID(),
		Timestamp: time.Now(),
		Keys:      []id.IdentityKey{{PassportNumber: "PL9876543", BirthDate: "05031992"}},
	}
	s.Require().NoError(s.store.Append(s.ctx, tx))
	s.Require().ErrorIs(s.store.Append(s.ctx, tx), sentinel.ErrConflict)
}

func (s *PostgresLedgerSuite) TestList_NewestFirst() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oldest := &models.SubmissionTransaction{ID: id.NewTransactionID(), BatchID: id.NewBatchID(), Timestamp: base}
	newest := &models.SubmissionTransaction{ID: id.NewTransactionID(), BatchID: id.NewBatchID(), Timestamp: base.Add(time.Hour)}

	s.Require().NoError(s.store.Append(s.ctx, newest))
	s.Require().NoError(s.store.Append(s.ctx, oldest))

	txs, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(txs, 2)
	s.Equal(newest.ID, txs[0].ID)
	s.Equal(oldest.ID, txs[1].ID)
}
