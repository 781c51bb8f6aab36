package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) TestStartsClosed() {
	b := New("knowledge")
	s.False(b.IsOpen())
	s.Equal(StateClosed, b.State())
	s.Equal("knowledge", b.Name())
	s.Equal("closed", b.State().String())
}

func (s *BreakerSuite) TestOpening() {
	s.Run("opens on the threshold failure only", func() {
		b := New("data", WithFailureThreshold(2))

		useFallback, change := b.RecordFailure()
		s.False(useFallback)
		s.False(change.Opened)

		useFallback, change = b.RecordFailure()
		s.True(useFallback)
		s.True(change.Opened)
		s.Equal("open", b.State().String())
	})

	s.Run("further failures while open report no transition", func() {
		b := New("data", WithFailureThreshold(1))
		b.RecordFailure()

		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.False(change.Opened)
	})

	s.Run("a success in between restarts the failure streak", func() {
		b := New("data", WithFailureThreshold(2))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		s.False(b.IsOpen())
		b.RecordFailure()
		s.True(b.IsOpen())
	})

	s.Run("non-positive thresholds keep defaults", func() {
		b := New("data", WithFailureThreshold(0))
		for i := 0; i < defaultFailureThreshold-1; i++ {
			b.RecordFailure()
		}
		s.False(b.IsOpen())
		b.RecordFailure()
		s.True(b.IsOpen())
	})
}

func (s *BreakerSuite) TestClosing() {
	s.Run("closes after consecutive successes", func() {
		b := New("projects", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		usePrimary, change := b.RecordSuccess()
		s.False(usePrimary)
		s.False(change.Closed)

		usePrimary, change = b.RecordSuccess()
		s.True(usePrimary)
		s.True(change.Closed)
		s.False(b.IsOpen())
	})

	s.Run("a failure while open restarts the success streak", func() {
		b := New("projects", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordSuccess()
		s.True(b.IsOpen())
		b.RecordSuccess()
		s.False(b.IsOpen())
	})
}

func (s *BreakerSuite) TestReset() {
	b := New("personal", WithFailureThreshold(1))
	b.RecordFailure()
	s.True(b.IsOpen())

	b.Reset()
	s.Equal(StateClosed, b.State())
}

func (s *BreakerSuite) TestConcurrentFailuresOpenOnce() {
	b := New("content", WithFailureThreshold(10))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, opened)
}
