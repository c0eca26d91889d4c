package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stayreg/internal/report/models"
	dErrors "stayreg/pkg/domain-errors"
)

type SubmitterSuite struct {
	suite.Suite
	ctx context.Context
}

func TestSubmitterSuite(t *testing.T) {
	suite.Run(t, new(SubmitterSuite))
}

func (s *SubmitterSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *SubmitterSuite) batch() []models.PersonRecord {
	return []models.PersonRecord{{
		Surname:        "Kowalski",
		GivenName:      "Piotr",
		BirthDate:      "05031992",
		PassportNumber: "PL9876543",
		Nationality:    "POL",
		Arrival:        time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		PurposeCode:    99,
	}}
}

func (s *SubmitterSuite) TestSubmit_Success() {
	var gotPath, gotKey string
	var gotBody submitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(submitResponse{
			ConfirmationPDF: "cGRm",
			HeaderErrors:    "201",
		})
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, "secret", 5*time.Second)
	result, err := submitter.Submit(s.ctx, s.batch())
	s.Require().NoError(err)

	s.Run("request shape", func() {
		s.Equal("/api/v1/reports", gotPath)
		s.Equal("secret", gotKey)
		s.Require().Len(gotBody.Records, 1)
		s.Equal("Kowalski", gotBody.Records[0].Surname)
		s.Equal("05031992", gotBody.Records[0].BirthDate)
		s.Equal("14.02.2026", gotBody.Records[0].Arrival)
		s.Empty(gotBody.Records[0].Departure)
	})

	s.Run("result populated", func() {
		s.Equal("cGRm", result.ConfirmationPayload)
		s.Equal("201", result.HeaderErrors)
		s.False(result.Critical())
		s.NotEmpty(result.RequestSnapshot)
		s.NotEmpty(result.ResponseSnapshot)
	})
}

func (s *SubmitterSuite) TestSubmit_NonOKStatus() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, "", 5*time.Second)
	_, err := submitter.Submit(s.ctx, s.batch())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRemoteCallFailed))
}

func (s *SubmitterSuite) TestSubmit_TransportFailure() {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	submitter := NewHTTPSubmitter(server.URL, "", time.Second)
	_, err := submitter.Submit(s.ctx, s.batch())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRemoteCallFailed))
}

func (s *SubmitterSuite) TestSubmit_MalformedResponseBody() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, "", 5*time.Second)
	_, err := submitter.Submit(s.ctx, s.batch())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRemoteCallFailed))
}
