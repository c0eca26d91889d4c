// Package models holds the domain types of the lodging-report engine.
package models

import (
	"time"

	id "stayreg/pkg/domain"
)

// Status is the lifecycle of a persisted person record.
//
// PENDING is the only mutable status and transitions exactly once, at
// reconciliation time. CONFIRMED and REJECTED are terminal and never change.
type Status string

const (
	// StatusPending means the record is admitted to the store but its
	// submission outcome is not yet known.
	StatusPending Status = "PENDING"

	// StatusConfirmed means the remote service accepted the record.
	StatusConfirmed Status = "CONFIRMED"

	// StatusRejected means the remote call failed, or the call succeeded but
	// the confirmation document listed the person as refused (or not at all).
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether the status never changes again.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// CanTransitionTo reports whether moving to next is a legal state change.
// The only legal transitions are PENDING -> CONFIRMED and PENDING -> REJECTED.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.Terminal()
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

// PersonRecord is one real individual to be reported. All fields are in
// normalized form: birth date DDMMYYYY, nationality an ISO-3 code, names
// trimmed. Records are immutable once persisted and resolved.
type PersonRecord struct {
	Surname        string
	GivenName      string
	BirthDate      string // DDMMYYYY
	PassportNumber string
	Nationality    string // ISO 3166-1 alpha-3
	Arrival        time.Time
	Departure      time.Time

	// Optional fields pass through beyond trimming.
	VisaNumber  string
	HomeAddress string
	PurposeCode int // 0-99, defaults to 99 when the source leaves it blank
	Note        string
}

// Key returns the identity key of the record. Names are not part of identity.
func (r PersonRecord) Key() id.IdentityKey {
	return id.IdentityKey{PassportNumber: r.PassportNumber, BirthDate: r.BirthDate}
}

// FullName renders "Surname GivenName", the form confirmation documents use.
func (r PersonRecord) FullName() string {
	return r.Surname + " " + r.GivenName
}

// StoredRecord is a person record as held by the identity store, together
// with its ledger state.
type StoredRecord struct {
	PersonRecord

	Status       Status
	Reason       string
	DocumentPath string
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// RawRow is one loosely-formatted source row: original header -> cell text.
type RawRow map[string]string

// RejectedRow records a source row excluded by validation, with the reasons.
// Row numbers are spreadsheet-style: the header is row 1, data starts at 2.
type RejectedRow struct {
	Row     int
	Name    string // best-effort "Surname GivenName" for the report
	Reasons []string
}

// SubmissionTransaction is one remote-call attempt covering one batch.
// Transactions are append-only audit facts: written once, never edited.
type SubmissionTransaction struct {
	ID        id.TransactionID
	BatchID   id.BatchID
	Timestamp time.Time

	// Keys lists the batch membership in submission order.
	Keys []id.IdentityKey

	Success      bool
	ErrorText    string
	DocumentPath string

	// Raw request/response artifacts kept for audit.
	RequestSnapshot  string
	ResponseSnapshot string
}

// ReconciliationSummary carries the record-count lines of a confirmation
// document ("Celkový počet záznamů" and friends).
type ReconciliationSummary struct {
	Total    int
	Accepted int
	Rejected int
}

// RunReport summarizes one end-to-end run for logging and the final report.
type RunReport struct {
	RowsRead            int
	ValidationRejected  int
	DuplicatesSkipped   int
	Submitted           int
	Confirmed           int
	Rejected            int
	RemoteCallFailures  int
	RejectedRows        []RejectedRow
}
