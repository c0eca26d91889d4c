// Package remote implements the submission capability against the
// registration service's HTTP endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stayreg/internal/report/models"
	"stayreg/internal/report/ports"
	dErrors "stayreg/pkg/domain-errors"
)

// stayDateLayout is the dotted day-first form the service expects.
const stayDateLayout = "02.01.2006"

// HTTPSubmitter implements ports.Submitter by posting batches to the
// registration service. One call covers one batch; the call is all-or-nothing
// and is never retried here.
type HTTPSubmitter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Submitter = (*HTTPSubmitter)(nil)

// Option configures the HTTPSubmitter.
type Option func(*HTTPSubmitter)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSubmitter) { s.httpClient = client }
}

func NewHTTPSubmitter(baseURL, apiKey string, timeout time.Duration, opts ...Option) *HTTPSubmitter {
	s := &HTTPSubmitter{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordPayload is the wire form of one person record.
type recordPayload struct {
	Surname        string `json:"surname"`
	GivenName      string `json:"given_name"`
	BirthDate      string `json:"birth_date"`
	PassportNumber string `json:"passport_number"`
	Nationality    string `json:"nationality"`
	Arrival        string `json:"arrival"`
	Departure      string `json:"departure,omitempty"`
	VisaNumber     string `json:"visa_number,omitempty"`
	HomeAddress    string `json:"home_address,omitempty"`
	PurposeCode    int    `json:"purpose_code"`
	Note           string `json:"note,omitempty"`
}

type submitRequest struct {
	Records []recordPayload `json:"records"`
}

type submitResponse struct {
	ConfirmationPDF string   `json:"confirmation_pdf"`
	HeaderErrors    string   `json:"header_errors"`
	RecordErrors    []string `json:"record_errors"`
}

// Submit posts one batch. A non-nil error means the call produced no usable
// result; error-code semantics inside a 200 response are left to the caller.
func (s *HTTPSubmitter) Submit(ctx context.Context, batch []models.PersonRecord) (*ports.SubmissionResult, error) {
	payload := submitRequest{Records: make([]recordPayload, len(batch))}
	for i, rec := range batch {
		payload.Records[i] = recordPayload{
			Surname:        rec.Surname,
			GivenName:      rec.GivenName,
			BirthDate:      rec.BirthDate,
			PassportNumber: rec.PassportNumber,
			Nationality:    rec.Nationality,
			Arrival:        rec.Arrival.Format(stayDateLayout),
			VisaNumber:     rec.VisaNumber,
			HomeAddress:    rec.HomeAddress,
			PurposeCode:    rec.PurposeCode,
			Note:           rec.Note,
		}
		if !rec.Departure.IsZero() {
			payload.Records[i].Departure = rec.Departure.Format(stayDateLayout)
		}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshaling submission request")
	}

	url := fmt.Sprintf("%s/api/v1/reports", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating submission request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, dErrors.Wrap(err, dErrors.CodeRemoteCallFailed, "submission request timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeRemoteCallFailed, "executing submission request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRemoteCallFailed, "reading submission response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeRemoteCallFailed,
			fmt.Sprintf("submission returned status %d", resp.StatusCode))
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRemoteCallFailed, "parsing submission response")
	}

	return &ports.SubmissionResult{
		ConfirmationPayload: parsed.ConfirmationPDF,
		HeaderErrors:        parsed.HeaderErrors,
		RecordErrors:        parsed.RecordErrors,
		RequestSnapshot:     string(reqBody),
		ResponseSnapshot:    string(body),
	}, nil
}
