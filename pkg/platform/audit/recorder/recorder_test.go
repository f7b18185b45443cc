package recorder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "garrison/pkg/domain"
	dErrors "garrison/pkg/domain-errors"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/platform/audit/alerts"
	"garrison/pkg/platform/audit/publishers/security"
	memoryStore "garrison/pkg/platform/audit/store/memory"
	"garrison/pkg/requestcontext"
)

// =============================================================================
// Audit Recorder Test Suite
// =============================================================================
// The recorder is the single write path for the audit trail; these tests pin
// its severity classification, risk scoring, value sanitization, and fan-out
// behavior, which are hard to exercise precisely through HTTP tests.

type RecorderSuite struct {
	suite.Suite
	store    *memoryStore.Store
	security *security.Publisher
	alerts   *alerts.Dispatcher
	notifier *captureNotifier
	recorder *Recorder

	now time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = memoryStore.New()
	s.security = security.New([]security.Sink{memoryStore.New()})
	s.notifier = &captureNotifier{}
	s.alerts = alerts.NewDispatcher(s.notifier)
	s.now = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	var err error
	s.recorder, err = New(s.store,
		WithSecurityPublisher(s.security),
		WithAlertDispatcher(s.alerts),
	)
	s.Require().NoError(err)
}

func (s *RecorderSuite) ctx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "curl/8.5", "curl")
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	return ctx
}

type captureNotifier struct {
	notified []audit.Event
}

func (n *captureNotifier) Notify(_ context.Context, event audit.Event, _ int) error {
	n.notified = append(n.notified, event)
	return nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("connection refused")
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *RecorderSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
	})
}

// =============================================================================
// Severity Classification
// =============================================================================

func (s *RecorderSuite) TestClassify() {
	s.Run("security clearance resource is critical", func() {
		sev := Classify(audit.Event{
			ResourceType: audit.ResourceSecurityClearance,
			Action:       audit.ActionView,
		})
		s.Equal(audit.SeverityCritical, sev)
	})

	s.Run("service number field is critical regardless of resource", func() {
		sev := Classify(audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionUpdate,
			FieldName:    "serviceNumber",
		})
		s.Equal(audit.SeverityCritical, sev)
	})

	s.Run("staff delete is high", func() {
		sev := Classify(audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionDelete,
		})
		s.Equal(audit.SeverityHigh, sev)
	})

	s.Run("rank change is high", func() {
		sev := Classify(audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionUpdate,
			FieldName:    "rank",
		})
		s.Equal(audit.SeverityHigh, sev)
	})

	s.Run("view falls through to medium", func() {
		sev := Classify(audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionView,
		})
		s.Equal(audit.SeverityMedium, sev)
	})

	s.Run("ordinary update is medium", func() {
		sev := Classify(audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionUpdate,
			FieldName:    "address",
		})
		s.Equal(audit.SeverityMedium, sev)
	})
}

// =============================================================================
// Risk Scoring
// =============================================================================

func (s *RecorderSuite) TestRiskScore() {
	s.Run("baseline is 10", func() {
		s.Equal(10, RiskScore(audit.Event{Action: audit.ActionUpdate}))
	})

	s.Run("failed login scores 80", func() {
		score := RiskScore(audit.Event{
			Action: audit.ActionLoginFailed,
			Failed: true,
		})
		s.Equal(80, score)
	})

	s.Run("failed sensitive data access caps at 60", func() {
		score := RiskScore(audit.Event{
			Action: audit.ActionSensitiveDataAccess,
			Failed: true,
		})
		s.Equal(60, score)
	})

	s.Run("account lock failure scores 80", func() {
		score := RiskScore(audit.Event{
			Action: audit.ActionAccountLocked,
			Failed: true,
		})
		s.Equal(80, score)
	})
}

// =============================================================================
// Record
// =============================================================================

func (s *RecorderSuite) TestRecord() {
	s.Run("stamps identity and metadata from context", func() {
		actorID := id.ActorID{}
		event, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceStaff,
			ResourceID:   "staff-1",
			Action:       audit.ActionUpdate,
			FieldName:    "address",
			OldValue:     "12 Barracks Rd",
			NewValue:     "14 Barracks Rd",
		})
		s.Require().NoError(err)

		s.False(event.ID.IsNil())
		s.Equal(s.now, event.Timestamp)
		s.Equal(actorID, event.ActorID) // no actor on context
		s.Equal("203.0.113.7", event.IPAddress)
		s.Equal("curl/8.5", event.UserAgent)
		s.Equal("req-42", event.RequestID)
		s.Equal(audit.CategoryData, event.Category)
		s.Equal(audit.SeverityMedium, event.Severity)
		s.Equal(10, event.RiskScore)
		s.Equal(1, s.store.Len())
	})

	s.Run("truncates oversized values", func() {
		long := strings.Repeat("x", 600)
		event, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionUpdate,
			FieldName:    "notes",
			NewValue:     long,
		})
		s.Require().NoError(err)
		s.Len(event.NewValue, 500)
	})

	s.Run("redacts credential fields", func() {
		event, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceSession,
			Action:       audit.ActionUpdate,
			FieldName:    "refreshToken",
			OldValue:     "old-secret-value",
			NewValue:     "new-secret-value",
		})
		s.Require().NoError(err)
		s.Equal("[REDACTED]", event.OldValue)
		s.Equal("[REDACTED]", event.NewValue)
	})

	s.Run("persistence failure carries audit code", func() {
		broken, err := New(failingStore{})
		s.Require().NoError(err)

		_, err = broken.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionUpdate,
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuditPersistence))
	})
}

// =============================================================================
// Fan-Out
// =============================================================================

func (s *RecorderSuite) TestFanOut() {
	s.Run("critical event reaches security feed", func() {
		_, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceSecurityClearance,
			ResourceID:   "clearance-9",
			Action:       audit.ActionUpdate,
		})
		s.Require().NoError(err)
		s.Equal(1, s.security.Pending())
	})

	s.Run("security duplicate lands in the durable store sink", func() {
		store := memoryStore.New()
		publisher := security.New([]security.Sink{store})
		rec, err := New(store, WithSecurityPublisher(publisher))
		s.Require().NoError(err)

		_, err = rec.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceSecurityClearance,
			ResourceID:   "clearance-9",
			Action:       audit.ActionUpdate,
		})
		s.Require().NoError(err)
		publisher.Flush(context.Background())

		events, err := store.ListRecent(context.Background(), 10)
		s.Require().NoError(err)
		s.Require().Len(events, 2)

		var securityCopies int
		for _, event := range events {
			if event.Category == audit.CategorySecurity {
				securityCopies++
			}
		}
		s.Equal(1, securityCopies)
	})

	s.Run("medium event stays off the security feed", func() {
		_, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionUpdate,
			FieldName:    "address",
		})
		s.Require().NoError(err)
		s.Equal(0, s.security.Pending())
	})

	s.Run("high risk event queues an alert", func() {
		event, err := s.recorder.RecordSecurity(s.ctx(),
			audit.ActionLoginFailed, audit.ResourceSession, "", "bad credentials", true)
		s.Require().NoError(err)

		s.Equal(80, event.RiskScore)
		s.Equal(audit.CategorySecurity, event.Category)
		s.Equal(1, s.alerts.Pending())
	})

	s.Run("low risk event does not alert", func() {
		_, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionView,
		})
		s.Require().NoError(err)
		s.Equal(0, s.alerts.Pending())
	})
}

// =============================================================================
// Append-Only Contract
// =============================================================================

func (s *RecorderSuite) TestAppendOnly() {
	s.Run("corrections reference the original event", func() {
		original, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceStaff,
			ResourceID:   "staff-1",
			Action:       audit.ActionUpdate,
			FieldName:    "unit",
			NewValue:     "1 Commando",
		})
		s.Require().NoError(err)

		correction, err := s.recorder.Record(s.ctx(), audit.Event{
			ResourceType: audit.ResourceStaff,
			ResourceID:   "staff-1",
			Action:       audit.ActionUpdate,
			FieldName:    "unit",
			NewValue:     "2 Commando",
			CorrectsID:   original.ID,
		})
		s.Require().NoError(err)
		s.Equal(original.ID, correction.CorrectsID)

		events, err := s.store.ListRecent(context.Background(), 10)
		s.Require().NoError(err)
		s.Len(events, 2)
		s.Equal(original.ID, events[0].ID)
	})
}
