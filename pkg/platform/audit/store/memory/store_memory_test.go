package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	id "garrison/pkg/domain"
	audit "garrison/pkg/platform/audit"
)

// ====== Memory Audit Store Test Suite ======
// The store backs tests and single-process deployments; these pin the
// append-only listing semantics and the limit handling.

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
}

func (s *MemoryStoreSuite) seed(n int) {
	for i := 0; i < n; i++ {
		s.Require().NoError(s.store.Append(context.Background(), audit.Event{
			ID:           id.NewEventID(),
			ResourceType: audit.ResourceStaff,
			Action:       audit.ActionUpdate,
		}))
	}
}

func (s *MemoryStoreSuite) TestListRecent() {
	s.Run("returns most recent events oldest first", func() {
		s.store = New()
		first := audit.Event{ID: id.NewEventID(), NewValue: "first"}
		second := audit.Event{ID: id.NewEventID(), NewValue: "second"}
		third := audit.Event{ID: id.NewEventID(), NewValue: "third"}
		for _, event := range []audit.Event{first, second, third} {
			s.Require().NoError(s.store.Append(context.Background(), event))
		}

		events, err := s.store.ListRecent(context.Background(), 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal("second", events[0].NewValue)
		s.Equal("third", events[1].NewValue)
	})

	s.Run("limit above length returns everything", func() {
		s.store = New()
		s.seed(2)
		events, err := s.store.ListRecent(context.Background(), 500)
		s.Require().NoError(err)
		s.Len(events, 2)
	})

	s.Run("zero limit returns empty", func() {
		s.store = New()
		s.seed(2)
		events, err := s.store.ListRecent(context.Background(), 0)
		s.Require().NoError(err)
		s.Empty(events)
	})

	s.Run("negative limit returns empty", func() {
		s.store = New()
		s.seed(2)
		events, err := s.store.ListRecent(context.Background(), -1)
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *MemoryStoreSuite) TestListByActor() {
	actorA, err := id.ParseActorID("550e8400-e29b-41d4-a716-446655440000")
	s.Require().NoError(err)
	actorB, err := id.ParseActorID("660e8400-e29b-41d4-a716-446655440000")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Append(context.Background(), audit.Event{ID: id.NewEventID(), ActorID: actorA}))
	s.Require().NoError(s.store.Append(context.Background(), audit.Event{ID: id.NewEventID(), ActorID: actorB}))
	s.Require().NoError(s.store.Append(context.Background(), audit.Event{ID: id.NewEventID(), ActorID: actorA}))

	events, err := s.store.ListByActor(context.Background(), actorA)
	s.Require().NoError(err)
	s.Len(events, 2)
}
