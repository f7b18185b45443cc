package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"garrison/pkg/requestcontext"
)

type RecordSuite struct {
	suite.Suite
	engine *Engine
	ctx    context.Context
}

func TestRecordSuite(t *testing.T) {
	suite.Run(t, new(RecordSuite))
}

func (s *RecordSuite) SetupTest() {
	s.engine = New()
	s.ctx = requestcontext.WithTime(context.Background(),
		time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
}

// validRecord returns a record that passes every field and cross-field check.
func validRecord() map[string]string {
	return map[string]string{
		"firstName":      "John",
		"lastName":       "Mwamba",
		"serviceNumber":  "ZA123456",
		"nationalId":     "010190/78/9",
		"dateOfBirth":    "1990-01-01",
		"enlistmentDate": "2010-03-01",
		"phone":          "+260 95 123 4567",
		"email":          "john.mwamba@army.example",
	}
}

func (s *RecordSuite) TestValidRecord() {
	result := s.engine.ValidateRecord(s.ctx, validRecord())
	s.True(result.Valid)
	s.Empty(result.Errors)
	s.Len(result.Fields, 8)
}

func (s *RecordSuite) TestFieldFailureInvalidatesRecord() {
	record := validRecord()
	record["serviceNumber"] = "x"
	result := s.engine.ValidateRecord(s.ctx, record)
	s.False(result.Valid)
	// The failure is per-field, not cross-field.
	s.Empty(result.Errors)
	s.False(result.Fields["serviceNumber"].Valid)
}

func (s *RecordSuite) TestEmergencyContactPair() {
	s.Run("name without phone and relationship yields two errors", func() {
		record := validRecord()
		record["emergencyContactName"] = "Mary Mwamba"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.False(result.Valid)
		s.Len(result.Errors, 2)
	})

	s.Run("name with only phone yields one error", func() {
		record := validRecord()
		record["emergencyContactName"] = "Mary Mwamba"
		record["emergencyContactPhone"] = "+260971234567"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.False(result.Valid)
		s.Require().Len(result.Errors, 1)
		s.Equal("emergencyContactRelationship", result.Errors[0].Field)
	})

	s.Run("complete contact triple is valid", func() {
		record := validRecord()
		record["emergencyContactName"] = "Mary Mwamba"
		record["emergencyContactPhone"] = "+260971234567"
		record["emergencyContactRelationship"] = "Spouse"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.True(result.Valid)
	})
}

func (s *RecordSuite) TestClearanceRequiresExpiry() {
	s.Run("clearance without expiry is a cross-field error", func() {
		record := validRecord()
		record["securityClearanceLevel"] = "Secret"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.False(result.Valid)
		s.Require().Len(result.Errors, 1)
		s.Equal("clearanceExpiryDate", result.Errors[0].Field)
		// Both fields validate in isolation; only the pair is inconsistent.
		s.True(result.Fields["securityClearanceLevel"].Valid)
	})

	s.Run("clearance None needs no expiry", func() {
		record := validRecord()
		record["securityClearanceLevel"] = "None"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.True(result.Valid)
	})

	s.Run("clearance with expiry is valid", func() {
		record := validRecord()
		record["securityClearanceLevel"] = "Secret"
		record["clearanceExpiryDate"] = "2026-01-01"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.True(result.Valid)
	})
}

func (s *RecordSuite) TestMedicalFitnessRequiresDue() {
	s.Run("fit without any due date fails", func() {
		record := validRecord()
		record["medicalFitnessStatus"] = "Fit"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.False(result.Valid)
	})

	s.Run("fit with next due date passes", func() {
		record := validRecord()
		record["medicalFitnessStatus"] = "Fit"
		record["nextMedicalDue"] = "2025-01-01"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.True(result.Valid)
	})

	s.Run("unfit needs no due date", func() {
		record := validRecord()
		record["medicalFitnessStatus"] = "Unfit"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.True(result.Valid)
	})
}

func (s *RecordSuite) TestEnlistmentAge() {
	s.Run("enlistment before sixteenth birthday is an error", func() {
		record := validRecord()
		record["dateOfBirth"] = "1990-01-01"
		record["enlistmentDate"] = "2005-12-31"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.False(result.Valid)
		s.Require().Len(result.Errors, 1)
		s.Equal("enlistmentDate", result.Errors[0].Field)
	})

	s.Run("enlistment on sixteenth birthday is allowed", func() {
		record := validRecord()
		record["dateOfBirth"] = "1990-01-01"
		record["enlistmentDate"] = "2006-01-01"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.True(result.Valid)
	})

	s.Run("late enlistment warns without invalidating", func() {
		record := validRecord()
		record["dateOfBirth"] = "1970-01-01"
		record["enlistmentDate"] = "2012-01-02"
		result := s.engine.ValidateRecord(s.ctx, record)
		s.True(result.Valid)
		s.Len(result.Warnings, 1)
	})
}
