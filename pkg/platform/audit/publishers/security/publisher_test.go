package security

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "garrison/pkg/domain-errors"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/testutil"
)

// ====== Security Publisher Test Suite ======
// Emit must never block or fail; the buffer absorbs bursts and the flush
// loop delivers to every sink, dropping oldest entries under pressure.

type capturingSink struct {
	mu     sync.Mutex
	events []audit.Event
	fail   bool
}

func (s *capturingSink) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return dErrors.New(dErrors.CodeInternal, "sink unavailable")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *capturingSink) captured() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

type PublisherSuite struct {
	suite.Suite
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) TestEmitStampsSecurityCategory() {
	sink := &capturingSink{}
	pub := New([]Sink{sink}, WithLogger(testutil.NewLogger()))

	pub.Emit(s.T().Context(), audit.Event{Action: audit.ActionLoginFailed, Category: audit.CategoryData})
	pub.Flush(s.T().Context())

	events := sink.captured()
	s.Require().Len(events, 1)
	s.Equal(audit.CategorySecurity, events[0].Category)
}

func (s *PublisherSuite) TestFlushDeliversToEverySink() {
	first := &capturingSink{}
	second := &capturingSink{}
	pub := New([]Sink{first, second}, WithLogger(testutil.NewLogger()))

	pub.Emit(s.T().Context(), audit.Event{Action: audit.ActionUpdate})
	pub.Emit(s.T().Context(), audit.Event{Action: audit.ActionDelete})
	pub.Flush(s.T().Context())

	s.Len(first.captured(), 2)
	s.Len(second.captured(), 2)
	s.Zero(pub.Pending())
}

func (s *PublisherSuite) TestOverflowDropsOldest() {
	sink := &capturingSink{}
	pub := New([]Sink{sink}, WithLogger(testutil.NewLogger()), WithBufferCapacity(2))

	pub.Emit(s.T().Context(), audit.Event{ResourceID: "first"})
	pub.Emit(s.T().Context(), audit.Event{ResourceID: "second"})
	pub.Emit(s.T().Context(), audit.Event{ResourceID: "third"})

	s.Equal(2, pub.Pending())
	pub.Flush(s.T().Context())

	events := sink.captured()
	s.Require().Len(events, 2)
	s.Equal("second", events[0].ResourceID)
	s.Equal("third", events[1].ResourceID)
}

func (s *PublisherSuite) TestSinkFailureDoesNotStopOthers() {
	broken := &capturingSink{fail: true}
	healthy := &capturingSink{}
	pub := New([]Sink{broken, healthy}, WithLogger(testutil.NewLogger()))

	pub.Emit(s.T().Context(), audit.Event{Action: audit.ActionCSRFRejected})
	pub.Flush(s.T().Context())

	s.Empty(broken.captured())
	s.Len(healthy.captured(), 1)
	s.Zero(pub.Pending())
}

func (s *PublisherSuite) TestRunDrainsOnShutdown() {
	sink := &capturingSink{}
	pub := New([]Sink{sink}, WithLogger(testutil.NewLogger()))

	pub.Emit(s.T().Context(), audit.Event{Action: audit.ActionAccountLocked})

	ctx, cancel := context.WithCancel(s.T().Context())
	cancel()
	s.Require().NoError(pub.Run(ctx))

	s.Len(sink.captured(), 1)
	s.Zero(pub.Pending())
}
