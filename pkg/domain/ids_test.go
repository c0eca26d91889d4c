package domain

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "stayreg/pkg/domain-errors"
)

type IdentityKeySuite struct {
	suite.Suite
}

func TestIdentityKeySuite(t *testing.T) {
	suite.Run(t, new(IdentityKeySuite))
}

func (s *IdentityKeySuite) TestNewIdentityKey() {
	s.Run("accepts normalized fields", func() {
		key, err := NewIdentityKey("PL9876543", "05031992")
		s.Require().NoError(err)
		s.Equal("PL9876543/05031992", key.String())
	})

	s.Run("rejects empty passport number", func() {
		_, err := NewIdentityKey("", "05031992")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects non-canonical birth date", func() {
		_, err := NewIdentityKey("PL9876543", "5031992")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("keys are comparable", func() {
		a, _ := NewIdentityKey("PL9876543", "05031992")
		b, _ := NewIdentityKey("PL9876543", "05031992")
		s.Equal(a, b)
	})
}

func (s *IdentityKeySuite) TestIDs() {
	s.Run("new IDs are not nil", func() {
		s.False(NewBatchID().IsNil())
		s.False(NewTransactionID().IsNil())
	})

	s.Run("parse rejects garbage", func() {
		_, err := ParseBatchID("not-a-uuid")
		s.Error(err)
	})

	s.Run("parse roundtrips", func() {
		id := NewBatchID()
		parsed, err := ParseBatchID(id.String())
		s.Require().NoError(err)
		s.Equal(id, parsed)
	})
}
