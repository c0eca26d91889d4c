package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"stayreg/internal/report/models"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists submission transactions. There is deliberately no UPDATE
// or DELETE path: the table is an append-only audit log.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS submission_transactions (
	id UUID PRIMARY KEY,
	batch_id UUID NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	identity_keys TEXT[] NOT NULL,
	success BOOLEAN NOT NULL,
	error_text TEXT,
	document_path TEXT,
	request_snapshot TEXT,
	response_snapshot TEXT
);
CREATE INDEX IF NOT EXISTS idx_submission_transactions_submitted_at
	ON submission_transactions(submitted_at DESC);
`

// Init creates the transactions table.
func (s *Postgres) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Postgres) Append(ctx context.Context, tx *models.SubmissionTransaction) error {
	keys := make([]string, len(tx.Keys))
	for i, k := range tx.Keys {
		keys[i] = k.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submission_transactions (
			id, batch_id, submitted_at, identity_keys, success,
			error_text, document_path, request_snapshot, response_snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		tx.ID.String(), tx.BatchID.String(), tx.Timestamp, pq.Array(keys),
		tx.Success, nullable(tx.ErrorText), nullable(tx.DocumentPath),
		nullable(tx.RequestSnapshot), nullable(tx.ResponseSnapshot),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.SubmissionTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, submitted_at, identity_keys, success,
		       error_text, document_path, request_snapshot, response_snapshot
		FROM submission_transactions ORDER BY submitted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.SubmissionTransaction
	for rows.Next() {
		var tx models.SubmissionTransaction
		var txID, batchID string
		var keys pq.StringArray
		var errText, docPath, reqSnap, respSnap sql.NullString
		if err := rows.Scan(&txID, &batchID, &tx.Timestamp, &keys, &tx.Success,
			&errText, &docPath, &reqSnap, &respSnap); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		parsedTx, err := id.ParseTransactionID(txID)
		if err != nil {
			return nil, fmt.Errorf("parse transaction id %q: %w", txID, err)
		}
		tx.ID = parsedTx
		parsedBatch, err := id.ParseBatchID(batchID)
		if err != nil {
			return nil, fmt.Errorf("parse batch id %q: %w", batchID, err)
		}
		tx.BatchID = parsedBatch
		for _, raw := range keys {
			key, err := parseIdentityKey(raw)
			if err != nil {
				return nil, err
			}
			tx.Keys = append(tx.Keys, key)
		}
		tx.ErrorText = errText.String
		tx.DocumentPath = docPath.String
		tx.RequestSnapshot = reqSnap.String
		tx.ResponseSnapshot = respSnap.String
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// parseIdentityKey reverses IdentityKey.String. Passport numbers are free
// text and may contain '/', but the birth date part never does, so the last
// separator is authoritative.
func parseIdentityKey(raw string) (id.IdentityKey, error) {
	idx := strings.LastIndex(raw, "/")
	if idx <= 0 || idx == len(raw)-1 {
		return id.IdentityKey{}, fmt.Errorf("malformed identity key %q", raw)
	}
	return id.IdentityKey{PassportNumber: raw[:idx], BirthDate: raw[idx+1:]}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
