//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "garrison/pkg/domain"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *Store
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.container = containers.NewPostgresContainer(s.T())
	_, err := s.container.DB.Exec(Schema)
	s.Require().NoError(err)
	s.store = New(s.container.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.container.DB.Exec("TRUNCATE audit_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) event(action string) audit.Event {
	actorID, err := id.ParseActorID("0f4a7c3e-9b1d-4e2a-8c6f-5d7e9a0b1c2d")
	s.Require().NoError(err)

	return audit.Event{
		ID:           id.NewEventID(),
		Category:     audit.CategoryData,
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		ActorID:      actorID,
		IPAddress:    "203.0.113.7",
		UserAgent:    "curl/8.5",
		RequestID:    "req-42",
		ResourceType: audit.ResourceStaff,
		ResourceID:   "staff-1",
		Action:       action,
		FieldName:    "rank",
		OldValue:     "Captain",
		NewValue:     "Major",
		Severity:     audit.SeverityHigh,
		RiskScore:    10,
	}
}

func (s *PostgresStoreSuite) TestAppend() {
	ctx := context.Background()

	s.Run("round trips an event", func() {
		event := s.event(audit.ActionUpdate)
		s.Require().NoError(s.store.Append(ctx, event))

		events, err := s.store.ListRecent(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 1)

		got := events[0]
		s.Equal(event.ID, got.ID)
		s.Equal(event.ActorID, got.ActorID)
		s.Equal(event.Action, got.Action)
		s.Equal(event.FieldName, got.FieldName)
		s.Equal(event.OldValue, got.OldValue)
		s.Equal(event.NewValue, got.NewValue)
		s.Equal(event.Severity, got.Severity)
		s.Equal(event.RiskScore, got.RiskScore)
		s.WithinDuration(event.Timestamp, got.Timestamp, time.Millisecond)
	})

	s.Run("re-appending the same id is a no-op", func() {
		event := s.event(audit.ActionUpdate)
		s.Require().NoError(s.store.Append(ctx, event))

		tampered := event
		tampered.NewValue = "General"
		s.Require().NoError(s.store.Append(ctx, tampered))

		events, err := s.store.ListByActor(ctx, event.ActorID)
		s.Require().NoError(err)

		var matched int
		for _, got := range events {
			if got.ID == event.ID {
				matched++
				s.Equal("Major", got.NewValue)
			}
		}
		s.Equal(1, matched)
	})
}

func (s *PostgresStoreSuite) TestListRecent() {
	ctx := context.Background()

	first := s.event(audit.ActionCreate)
	second := s.event(audit.ActionUpdate)
	second.Timestamp = first.Timestamp.Add(time.Second)
	third := s.event(audit.ActionDelete)
	third.Timestamp = first.Timestamp.Add(2 * time.Second)

	for _, event := range []audit.Event{first, second, third} {
		s.Require().NoError(s.store.Append(ctx, event))
	}

	events, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	// Most recent two, returned oldest first.
	s.Equal(second.ID, events[0].ID)
	s.Equal(third.ID, events[1].ID)
}
