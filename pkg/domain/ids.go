// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "stayreg/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a BatchID where a TransactionID is expected.
type (
	BatchID       uuid.UUID
	TransactionID uuid.UUID
)

func NewBatchID() BatchID             { return BatchID(uuid.New()) }
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

func ParseBatchID(s string) (BatchID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BatchID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid batch ID")
	}
	return BatchID(id), nil
}

func ParseTransactionID(s string) (TransactionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TransactionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid transaction ID")
	}
	return TransactionID(id), nil
}

// String methods - for logging and debugging.

func (id BatchID) String() string       { return uuid.UUID(id).String() }
func (id TransactionID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id BatchID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IdentityKey uniquely identifies one reported person for the lifetime of the
// system. Names are deliberately excluded: they are mutable and typo-prone,
// while (passport number, birth date) is stable. Two records sharing this pair
// are the same person and must never both reach submission.
type IdentityKey struct {
	PassportNumber string
	BirthDate      string // canonical DDMMYYYY, no separators
}

// NewIdentityKey builds an identity key from already-normalized fields.
// Use at trust boundaries; normalization happens upstream.
func NewIdentityKey(passportNumber, birthDate string) (IdentityKey, error) {
	if passportNumber == "" {
		return IdentityKey{}, dErrors.New(dErrors.CodeInvalidInput, "passport number is required")
	}
	if len(birthDate) != 8 {
		return IdentityKey{}, dErrors.New(dErrors.CodeInvalidInput, "birth date must be 8 digits")
	}
	return IdentityKey{PassportNumber: passportNumber, BirthDate: birthDate}, nil
}

func (k IdentityKey) String() string {
	return fmt.Sprintf("%s/%s", k.PassportNumber, k.BirthDate)
}

func (k IdentityKey) IsZero() bool {
	return k.PassportNumber == "" && k.BirthDate == ""
}
