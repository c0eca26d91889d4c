package person

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"stayreg/internal/report/models"
	id "stayreg/pkg/domain"
	"stayreg/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// Postgres persists person records in PostgreSQL. The persons table carries
// UNIQUE (passport_number, birth_date); a duplicate insert surfaces as
// sentinel.ErrConflict, which is how the storage layer backs the at-most-once
// submission guarantee.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS persons (
	passport_number TEXT NOT NULL,
	birth_date TEXT NOT NULL,
	surname TEXT NOT NULL,
	given_name TEXT NOT NULL,
	nationality TEXT NOT NULL,
	arrival TIMESTAMPTZ NOT NULL,
	departure TIMESTAMPTZ,
	visa_number TEXT,
	home_address TEXT,
	purpose_code INT NOT NULL,
	note TEXT,
	status TEXT NOT NULL,
	reason TEXT,
	document_path TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	resolved_at TIMESTAMPTZ,
	UNIQUE (passport_number, birth_date)
);
CREATE INDEX IF NOT EXISTS idx_persons_status ON persons(status);
`

// Init creates the persons table.
func (s *Postgres) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Postgres) Exists(ctx context.Context, key id.IdentityKey) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM persons WHERE passport_number = $1 AND birth_date = $2)`,
		key.PassportNumber, key.BirthDate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("identity lookup: %w", err)
	}
	return exists, nil
}

func (s *Postgres) Persist(ctx context.Context, record *models.StoredRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (
			passport_number, birth_date, surname, given_name, nationality,
			arrival, departure, visa_number, home_address, purpose_code, note,
			status, reason, document_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
	`,
		record.PassportNumber, record.BirthDate, record.Surname, record.GivenName,
		record.Nationality, record.Arrival, record.Departure,
		nullable(record.VisaNumber), nullable(record.HomeAddress), record.PurposeCode,
		nullable(record.Note), string(record.Status), nullable(record.Reason),
		nullable(record.DocumentPath),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("persist person: %w", err)
	}
	return nil
}

func (s *Postgres) UpdateStatus(ctx context.Context, key id.IdentityKey, status models.Status, reason, documentPath string) error {
	// The status guard is in the WHERE clause: terminal rows never match, so
	// a second resolution attempt affects zero rows instead of overwriting.
	res, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET status = $3, reason = $4, document_path = $5, resolved_at = now()
		WHERE passport_number = $1 AND birth_date = $2 AND status = $6
	`, key.PassportNumber, key.BirthDate, string(status), nullable(reason),
		nullable(documentPath), string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if affected == 0 {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return sentinel.ErrInvalidState
		}
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Pending(ctx context.Context) ([]*models.StoredRecord, error) {
	return s.query(ctx, `
		SELECT passport_number, birth_date, surname, given_name, nationality,
		       arrival, departure, visa_number, home_address, purpose_code, note,
		       status, reason, document_path, created_at, resolved_at
		FROM persons WHERE status = $1 ORDER BY created_at ASC
	`, string(models.StatusPending))
}

func (s *Postgres) All(ctx context.Context) ([]*models.StoredRecord, error) {
	return s.query(ctx, `
		SELECT passport_number, birth_date, surname, given_name, nationality,
		       arrival, departure, visa_number, home_address, purpose_code, note,
		       status, reason, document_path, created_at, resolved_at
		FROM persons ORDER BY created_at DESC
	`)
}

func (s *Postgres) query(ctx context.Context, query string, args ...any) ([]*models.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var records []*models.StoredRecord
	for rows.Next() {
		var r models.StoredRecord
		var visa, home, note, reason, docPath sql.NullString
		var status string
		var resolvedAt sql.NullTime
		if err := rows.Scan(
			&r.PassportNumber, &r.BirthDate, &r.Surname, &r.GivenName, &r.Nationality,
			&r.Arrival, &r.Departure, &visa, &home, &r.PurposeCode, &note,
			&status, &reason, &docPath, &r.CreatedAt, &resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		r.VisaNumber = visa.String
		r.HomeAddress = home.String
		r.Note = note.String
		r.Status = models.Status(status)
		r.Reason = reason.String
		r.DocumentPath = docPath.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			r.ResolvedAt = &t
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return records, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
