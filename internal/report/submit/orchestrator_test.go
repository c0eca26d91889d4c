package submit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"stayreg/internal/report/models"
	"stayreg/internal/report/ports"
	"stayreg/internal/report/reconcile"
	"stayreg/internal/report/store/document"
	"stayreg/internal/report/store/ledger"
	"stayreg/internal/report/store/person"
)

// scriptedSubmitter fabricates confirmation documents and records every call.
type scriptedSubmitter struct {
	persons ports.PersonStore

	calls         [][]models.PersonRecord
	pendingAtCall []int

	failCalls     map[int]bool
	criticalCalls map[int]bool
	headerErrors  string
	rejectReasons map[string]string // FullName -> reason
	omitNames     map[string]bool
}

func newScriptedSubmitter(persons ports.PersonStore) *scriptedSubmitter {
	return &scriptedSubmitter{
		persons:       persons,
		failCalls:     map[int]bool{},
		criticalCalls: map[int]bool{},
		rejectReasons: map[string]string{},
		omitNames:     map[string]bool{},
	}
}

func (s *scriptedSubmitter) Submit(ctx context.Context, batch []models.PersonRecord) (*ports.SubmissionResult, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, batch)

	if s.persons != nil {
		pending, err := s.persons.Pending(ctx)
		if err != nil {
			return nil, err
		}
		s.pendingAtCall = append(s.pendingAtCall, len(pending))
	}

	if s.failCalls[idx] {
		return nil, errors.New("dial tcp: connection refused")
	}
	if s.criticalCalls[idx] {
		return &ports.SubmissionResult{HeaderErrors: "101"}, nil
	}

	var accepted, rejected []string
	for _, rec := range batch {
		name := rec.FullName()
		if s.omitNames[name] {
			continue
		}
		if reason, ok := s.rejectReasons[name]; ok {
			rejected = append(rejected, name+" — "+reason)
			continue
		}
		accepted = append(accepted, name)
	}
	doc := fmt.Sprintf(
		"Celkový počet záznamů: %d\nPočet přijatých záznamů: %d\nSeznam nepřijatých záznamů: %d\n\n"+
			"SEZNAM PŘIJATÝCH ZÁZNAMŮ\n\n%s\n\nSEZNAM NEPŘIJATÝCH ZÁZNAMŮ\n\n%s\n",
		len(accepted)+len(rejected), len(accepted), len(rejected),
		strings.Join(accepted, "\n"), strings.Join(rejected, "\n"),
	)
	return &ports.SubmissionResult{
		ConfirmationPayload: base64.StdEncoding.EncodeToString([]byte(doc)),
		HeaderErrors:        s.headerErrors,
		RequestSnapshot:     "request",
		ResponseSnapshot:    "response",
	}, nil
}

type OrchestratorSuite struct {
	suite.Suite
	ctx       context.Context
	persons   *person.InMemory
	ledger    *ledger.InMemory
	submitter *scriptedSubmitter
	orch      *Orchestrator
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctx = context.Background()
	s.persons = person.NewInMemory()
	s.ledger = ledger.NewInMemory()
	s.submitter = newScriptedSubmitter(s.persons)

	documents, err := document.NewFilesystem(s.T().TempDir())
	s.Require().NoError(err)
	engine, err := reconcile.New(reconcile.PlainTextExtractor{})
	s.Require().NoError(err)

	s.orch, err = New(s.submitter, s.persons, s.ledger, documents, engine)
	s.Require().NoError(err)
}

func testPerson(i int) models.PersonRecord {
	// letter-only name tag; confirmation documents list people by name
	tag := string(rune('A'+i/26)) + string(rune('A'+i%26))
	return models.PersonRecord{
		Surname:        "Novak" + tag,
		GivenName:      "Jan" + tag,
		BirthDate:      "01011990",
		PassportNumber: fmt.Sprintf("P%07d", i),
		Nationality:    "UKR",
		PurposeCode:    99,
	}
}

func testPersons(n int) []models.PersonRecord {
	out := make([]models.PersonRecord, n)
	for i := range out {
		out[i] = testPerson(i)
	}
	return out
}

func (s *OrchestratorSuite) statusOf(rec models.PersonRecord) (models.Status, string) {
	all, err := s.persons.All(s.ctx)
	s.Require().NoError(err)
	for _, stored := range all {
		if stored.Key() == rec.Key() {
			return stored.Status, stored.Reason
		}
	}
	s.FailNow("record not in store", rec.Key().String())
	return "", ""
}

// ============================================================
// Grouping
// ============================================================

func (s *OrchestratorSuite) TestSubmit_SplitsIntoGroupsOfAtMost32() {
	records := testPersons(70)

	report, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Run("three calls of 32, 32, 6", func() {
		s.Require().Len(s.submitter.calls, 3)
		s.Len(s.submitter.calls[0], 32)
		s.Len(s.submitter.calls[1], 32)
		s.Len(s.submitter.calls[2], 6)
	})

	s.Run("all records confirmed", func() {
		s.Equal(70, report.Submitted)
		s.Equal(70, report.Confirmed)
		s.Zero(report.Rejected)
	})

	s.Run("one ledger transaction per group", func() {
		txs, err := s.ledger.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(txs, 3)
		for _, tx := range txs {
			s.True(tx.Success)
			s.NotEmpty(tx.DocumentPath)
		}
	})
}

func (s *OrchestratorSuite) TestSubmit_PersistsPendingBeforeFirstCall() {
	records := testPersons(5)

	_, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Require().Len(s.submitter.pendingAtCall, 1)
	s.Equal(5, s.submitter.pendingAtCall[0])
}

func (s *OrchestratorSuite) TestSubmit_EmptyInputMakesNoCalls() {
	report, err := s.orch.Submit(s.ctx, nil)
	s.Require().NoError(err)
	s.Zero(report.Submitted)
	s.Empty(s.submitter.calls)
}

// ============================================================
// Call failures
// ============================================================

func (s *OrchestratorSuite) TestSubmit_TransportFailureRejectsOnlyItsGroup() {
	var err error
	s.orch, err = New(s.submitter, s.persons, s.ledger, s.mustDocuments(), s.mustEngine(), WithBatchSize(4))
	s.Require().NoError(err)
	s.submitter.failCalls[0] = true

	records := testPersons(6)
	report, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Run("failed group rejected with call failure", func() {
		for _, rec := range records[:4] {
			status, reason := s.statusOf(rec)
			s.Equal(models.StatusRejected, status)
			s.Equal(ReasonCallFailure, reason)
		}
	})

	s.Run("other group unaffected", func() {
		for _, rec := range records[4:] {
			status, _ := s.statusOf(rec)
			s.Equal(models.StatusConfirmed, status)
		}
	})

	s.Run("report counts", func() {
		s.Equal(1, report.RemoteCallFailures)
		s.Equal(4, report.Rejected)
		s.Equal(2, report.Confirmed)
	})

	s.Run("failure transaction recorded", func() {
		txs, err := s.ledger.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(txs, 2)
		var failed int
		for _, tx := range txs {
			if !tx.Success {
				failed++
				s.Contains(tx.ErrorText, "connection refused")
			}
		}
		s.Equal(1, failed)
	})
}

func (s *OrchestratorSuite) TestSubmit_CriticalHeaderCodeCountsAsFailure() {
	s.submitter.criticalCalls[0] = true

	records := testPersons(2)
	report, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Equal(1, report.RemoteCallFailures)
	for _, rec := range records {
		status, reason := s.statusOf(rec)
		s.Equal(models.StatusRejected, status)
		s.Equal(ReasonCallFailure, reason)
	}
}

func (s *OrchestratorSuite) TestSubmit_WarningHeaderCodeProceeds() {
	s.submitter.headerErrors = "201;202"

	records := testPersons(2)
	report, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Zero(report.RemoteCallFailures)
	s.Equal(2, report.Confirmed)
}

// ============================================================
// Reconciliation outcomes
// ============================================================

func (s *OrchestratorSuite) TestSubmit_RejectedAndMissingRecords() {
	records := testPersons(3)
	s.submitter.rejectReasons[records[1].FullName()] = "Nekorektní záznam"
	s.submitter.omitNames[records[2].FullName()] = true

	report, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Run("accepted record confirmed", func() {
		status, _ := s.statusOf(records[0])
		s.Equal(models.StatusConfirmed, status)
	})

	s.Run("rejected record carries the document reason", func() {
		status, reason := s.statusOf(records[1])
		s.Equal(models.StatusRejected, status)
		s.Equal("Nekorektní záznam", reason)
	})

	s.Run("missing record rejected fail closed", func() {
		status, reason := s.statusOf(records[2])
		s.Equal(models.StatusRejected, status)
		s.Equal(reconcile.ReasonNotFound, reason)
	})

	s.Equal(1, report.Confirmed)
	s.Equal(2, report.Rejected)
}

// ============================================================
// Recovery
// ============================================================

func (s *OrchestratorSuite) TestRecover_ResubmitsPendingRecords() {
	records := testPersons(3)
	for _, rec := range records {
		err := s.persons.Persist(s.ctx, &models.StoredRecord{
			PersonRecord: rec,
			Status:       models.StatusPending,
		})
		s.Require().NoError(err)
	}

	report, err := s.orch.Recover(s.ctx)
	s.Require().NoError(err)

	s.Equal(3, report.Submitted)
	s.Equal(3, report.Confirmed)
	for _, rec := range records {
		status, _ := s.statusOf(rec)
		s.Equal(models.StatusConfirmed, status)
	}
}

func (s *OrchestratorSuite) TestRecover_NothingPendingIsANoOp() {
	report, err := s.orch.Recover(s.ctx)
	s.Require().NoError(err)
	s.Zero(report.Submitted)
	s.Empty(s.submitter.calls)
}

// ============================================================
// Idempotence
// ============================================================

func (s *OrchestratorSuite) TestSubmit_SecondRunLeavesResolvedRecordsAlone() {
	records := testPersons(2)

	_, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	// a rerun of the same input must not flip already-terminal records,
	// and already-persisted records must not reach the remote service again
	s.submitter.rejectReasons[records[0].FullName()] = "Duplicitní záznam"
	report, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Len(s.submitter.calls, 1)
	s.Zero(report.Submitted)
	s.Zero(report.Confirmed)
	s.Zero(report.Rejected)
	for _, rec := range records {
		status, _ := s.statusOf(rec)
		s.Equal(models.StatusConfirmed, status)
	}
}

func (s *OrchestratorSuite) TestSubmit_ConflictedRecordsExcludedFromBatch() {
	records := testPersons(3)

	// one record is already pending from an interrupted run
	err := s.persons.Persist(s.ctx, &models.StoredRecord{
		PersonRecord: records[1],
		Status:       models.StatusPending,
	})
	s.Require().NoError(err)

	report, err := s.orch.Submit(s.ctx, records)
	s.Require().NoError(err)

	s.Require().Len(s.submitter.calls, 1)
	s.Len(s.submitter.calls[0], 2)
	s.Equal(2, report.Submitted)
	for _, rec := range s.submitter.calls[0] {
		s.NotEqual(records[1].Key(), rec.Key())
	}

	// the skipped record stays pending for the recovery pass
	status, _ := s.statusOf(records[1])
	s.Equal(models.StatusPending, status)
}

func (s *OrchestratorSuite) mustDocuments() *document.Filesystem {
	store, err := document.NewFilesystem(s.T().TempDir())
	s.Require().NoError(err)
	return store
}

func (s *OrchestratorSuite) mustEngine() *reconcile.Engine {
	engine, err := reconcile.New(reconcile.PlainTextExtractor{})
	s.Require().NoError(err)
	return engine
}
