package circuit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now time.Time
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *BreakerSuite) clock() time.Time { return s.now }

func (s *BreakerSuite) newBreaker(opts ...Option) *Breaker {
	return New("tree", append([]Option{WithClock(s.clock)}, opts...)...)
}

func (s *BreakerSuite) open(b *Breaker) {
	for !b.IsOpen() {
		b.RecordFailure()
	}
}

func (s *BreakerSuite) TestDefaults() {
	b := s.newBreaker()
	s.Equal("tree", b.Name())
	s.Equal(StateClosed, b.State())
	s.Equal("closed", b.State().String())

	for range 4 {
		_, change := b.RecordFailure()
		s.False(change.Opened)
	}
	useFallback, change := b.RecordFailure()
	s.True(useFallback)
	s.True(change.Opened, "five consecutive failures open by default")
	s.Equal("open", b.State().String())

	s.now = s.now.Add(29 * time.Second)
	s.False(b.Allow())
	s.now = s.now.Add(time.Second)
	s.True(b.Allow(), "default cooldown is 30s")

	usePrimary, change := b.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed, "one success closes by default")
}

func (s *BreakerSuite) TestNonPositiveOptionsKeepDefaults() {
	b := New("tree",
		WithFailureThreshold(0),
		WithSuccessThreshold(-1),
		WithCooldown(0),
		WithClock(nil),
	)
	s.Equal(5, b.failureThreshold)
	s.Equal(1, b.successThreshold)
	s.Equal(30*time.Second, b.cooldown)
	s.NotNil(b.clock)
}

func (s *BreakerSuite) TestOnlyConsecutiveFailuresOpen() {
	b := s.newBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	_, change := b.RecordFailure()
	s.False(change.Opened, "a success in between restarts the count")
	s.False(b.IsOpen())

	_, change = b.RecordFailure()
	s.True(change.Opened)
}

func (s *BreakerSuite) TestClosingNeedsConsecutiveSuccesses() {
	b := s.newBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	s.open(b)

	usePrimary, _ := b.RecordSuccess()
	s.False(usePrimary)
	b.RecordFailure()
	usePrimary, change := b.RecordSuccess()
	s.False(usePrimary, "a failure while open restarts the success count")
	s.False(change.Closed)

	usePrimary, change = b.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed)
	s.False(b.IsOpen())
}

func (s *BreakerSuite) TestOpenFailuresReportNoTransition() {
	b := s.newBreaker(WithFailureThreshold(1))
	s.open(b)

	useFallback, change := b.RecordFailure()
	s.True(useFallback)
	s.Equal(StateChange{}, change)
}

func (s *BreakerSuite) TestAllowAdmitsOneProbePerCooldown() {
	b := s.newBreaker(WithFailureThreshold(1), WithCooldown(10*time.Second))
	s.True(b.Allow(), "closed breaker always allows")
	s.True(b.Allow())

	s.open(b)
	s.False(b.Allow())

	s.now = s.now.Add(10 * time.Second)
	s.True(b.Allow(), "first caller after cooldown probes")
	s.False(b.Allow(), "later callers wait for the probe")

	s.now = s.now.Add(10 * time.Second)
	s.True(b.Allow(), "an unanswered probe is retried after another cooldown")
}

func (s *BreakerSuite) TestFailedProbeRearmsCooldown() {
	b := s.newBreaker(WithFailureThreshold(1), WithCooldown(10*time.Second))
	s.open(b)

	s.now = s.now.Add(10 * time.Second)
	s.Require().True(b.Allow())
	s.now = s.now.Add(5 * time.Second)
	b.RecordFailure()

	s.now = s.now.Add(9 * time.Second)
	s.False(b.Allow(), "cooldown counts from the failed probe")
	s.now = s.now.Add(time.Second)
	s.True(b.Allow())
}

func (s *BreakerSuite) TestResetClearsProbeTimer() {
	b := s.newBreaker(WithFailureThreshold(2), WithCooldown(time.Hour))
	s.open(b)
	s.False(b.Allow())

	b.Reset()
	s.Equal(StateClosed, b.State())
	s.True(b.Allow())

	_, change := b.RecordFailure()
	s.False(change.Opened, "failure count starts over after reset")
}

func (s *BreakerSuite) TestConcurrentCallersShareOneProbe() {
	b := s.newBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	s.open(b)
	s.now = s.now.Add(time.Minute)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), admitted.Load())
}
