package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"stayreg/internal/report/models"
	"stayreg/internal/report/store/person"
)

type ResolverSuite struct {
	suite.Suite
	ctx      context.Context
	store    *person.InMemory
	resolver *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = person.NewInMemory()

	resolver, err := New(s.store)
	s.Require().NoError(err)
	s.resolver = resolver
}

func record(surname, passport, birthDate string) models.PersonRecord {
	return models.PersonRecord{
		Surname:        surname,
		GivenName:      "Jan",
		BirthDate:      birthDate,
		PassportNumber: passport,
		Nationality:    "POL",
	}
}

func (s *ResolverSuite) TestPartition_AllNew() {
	part, err := s.resolver.Partition(s.ctx, []models.PersonRecord{
		record("Novak", "AB1111111", "01011990"),
		record("Svoboda", "AB2222222", "02021991"),
	})
	s.Require().NoError(err)
	s.Len(part.New, 2)
	s.Empty(part.Known)
}

func (s *ResolverSuite) TestPartition_KnownKeySkipped() {
	known := record("Novak", "AB1111111", "01011990")
	err := s.store.Persist(s.ctx, &models.StoredRecord{
		PersonRecord: known,
		Status:       models.StatusConfirmed,
	})
	s.Require().NoError(err)

	part, err := s.resolver.Partition(s.ctx, []models.PersonRecord{
		known,
		record("Svoboda", "AB2222222", "02021991"),
	})
	s.Require().NoError(err)

	s.Run("known record skipped", func() {
		s.Require().Len(part.Known, 1)
		s.Equal("Novak", part.Known[0].Surname)
	})
	s.Run("new record kept in order", func() {
		s.Require().Len(part.New, 1)
		s.Equal("Svoboda", part.New[0].Surname)
	})
}

func (s *ResolverSuite) TestPartition_DuplicateWithinInput() {
	rec := record("Novak", "AB1111111", "01011990")

	part, err := s.resolver.Partition(s.ctx, []models.PersonRecord{rec, rec, rec})
	s.Require().NoError(err)
	s.Len(part.New, 1)
	s.Len(part.Known, 2)
}

func (s *ResolverSuite) TestPartition_SamePassportDifferentBirthDateIsNew() {
	err := s.store.Persist(s.ctx, &models.StoredRecord{
		PersonRecord: record("Novak", "AB1111111", "01011990"),
		Status:       models.StatusConfirmed,
	})
	s.Require().NoError(err)

	part, err := s.resolver.Partition(s.ctx, []models.PersonRecord{
		record("Novak", "AB1111111", "02021991"),
	})
	s.Require().NoError(err)
	s.Len(part.New, 1)
	s.Empty(part.Known)
}

func (s *ResolverSuite) TestPartition_RejectedKeyStaysKnown() {
	// a rejected record is still a past submission; it is never retried
	err := s.store.Persist(s.ctx, &models.StoredRecord{
		PersonRecord: record("Novak", "AB1111111", "01011990"),
		Status:       models.StatusRejected,
	})
	s.Require().NoError(err)

	part, err := s.resolver.Partition(s.ctx, []models.PersonRecord{
		record("Novak", "AB1111111", "01011990"),
	})
	s.Require().NoError(err)
	s.Empty(part.New)
	s.Len(part.Known, 1)
}
