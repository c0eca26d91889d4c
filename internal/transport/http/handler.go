// Package httptransport exposes read-only views over the record store and
// the submission ledger. The submission pipeline itself is never driven over
// HTTP; these endpoints exist for operators checking on a run.
package httptransport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"stayreg/internal/report/models"
	"stayreg/internal/report/ports"
	dErrors "stayreg/pkg/domain-errors"
	"stayreg/pkg/platform/httputil"
)

type Handler struct {
	persons ports.PersonStore
	ledger  ports.LedgerStore
	logger  *slog.Logger
}

func New(persons ports.PersonStore, ledger ports.LedgerStore, logger *slog.Logger) *Handler {
	return &Handler{persons: persons, ledger: ledger, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/records", h.HandleListRecords)
	r.Get("/transactions", h.HandleListTransactions)
	r.Get("/healthz", h.HandleHealth)
}

// RecordResponse is the wire form of one stored record.
type RecordResponse struct {
	Surname        string     `json:"surname"`
	GivenName      string     `json:"given_name"`
	BirthDate      string     `json:"birth_date"`
	PassportNumber string     `json:"passport_number"`
	Nationality    string     `json:"nationality"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason,omitempty"`
	DocumentPath   string     `json:"document_path,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
	Total   int              `json:"total"`
}

// TransactionResponse is the wire form of one ledger transaction.
type TransactionResponse struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	Timestamp    time.Time `json:"timestamp"`
	Keys         []string  `json:"keys"`
	Success      bool      `json:"success"`
	ErrorText    string    `json:"error_text,omitempty"`
	DocumentPath string    `json:"document_path,omitempty"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int                   `json:"total"`
}

// HandleListRecords returns every stored record, newest first. An optional
// ?status= query narrows to one status.
func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter = models.Status(strings.ToUpper(raw))
		if !filter.IsValid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown status "+raw))
			return
		}
	}

	records, err := h.persons.All(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing records failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	response := RecordListResponse{Records: []RecordResponse{}}
	for _, rec := range records {
		if filter != "" && rec.Status != filter {
			continue
		}
		response.Records = append(response.Records, toRecordResponse(rec))
	}
	response.Total = len(response.Records)
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleListTransactions returns the submission ledger, newest first.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txs, err := h.ledger.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing transactions failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	response := TransactionListResponse{Transactions: []TransactionResponse{}}
	for _, tx := range txs {
		response.Transactions = append(response.Transactions, toTransactionResponse(tx))
	}
	response.Total = len(response.Transactions)
	httputil.WriteJSON(w, http.StatusOK, response)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toRecordResponse(rec *models.StoredRecord) RecordResponse {
	return RecordResponse{
		Surname:        rec.Surname,
		GivenName:      rec.GivenName,
		BirthDate:      rec.BirthDate,
		PassportNumber: rec.PassportNumber,
		Nationality:    rec.Nationality,
		Status:         string(rec.Status),
		Reason:         rec.Reason,
		DocumentPath:   rec.DocumentPath,
		CreatedAt:      rec.CreatedAt,
		ResolvedAt:     rec.ResolvedAt,
	}
}

func toTransactionResponse(tx *models.SubmissionTransaction) TransactionResponse {
	keys := make([]string, len(tx.Keys))
	for i, key := range tx.Keys {
		keys[i] = key.String()
	}
	return TransactionResponse{
		ID:           tx.ID.String(),
		BatchID:      tx.BatchID.String(),
		Timestamp:    tx.Timestamp,
		Keys:         keys,
		Success:      tx.Success,
		ErrorText:    tx.ErrorText,
		DocumentPath: tx.DocumentPath,
	}
}
