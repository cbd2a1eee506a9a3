package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linguaprep/exam-service/internal/models"
)

// fakeClock drives the countdown by hand: each Advance delivers one tick per
// elapsed second and moves Now forward accordingly.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = &fakeTicker{ch: make(chan time.Time)}
	return c.ticker
}

// Advance moves the clock n seconds, delivering each tick synchronously so
// the countdown goroutine processes it before the next one fires.
func (c *fakeClock) Advance(seconds int) {
	for i := 0; i < seconds; i++ {
		c.mu.Lock()
		c.now = c.now.Add(time.Second)
		ticker := c.ticker
		c.mu.Unlock()
		if ticker != nil {
			ticker.tick(c.Now())
		}
	}
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) tick(now time.Time) {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return
	}
	select {
	case t.ch <- now:
	case <-time.After(time.Second):
		// countdown goroutine already exited
	}
}

// collector records finalize deliveries.
type collector struct {
	mu      sync.Mutex
	entries [][]models.SubmissionEntry
	reasons []string
}

func (c *collector) finalize(entries []models.SubmissionEntry, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entries)
	c.reasons = append(c.reasons, reason)
}

func (c *collector) deliveries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func intPtr(n int) *int { return &n }

// waitFor absorbs the handoff between the tick channel and the countdown
// goroutine; the last delivered tick may still be in flight when Advance
// returns.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, time.Second, 2*time.Millisecond)
}

func TestSession_Lifecycle(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)

	assert.Equal(t, models.SessionNotStarted, s.Status())
	assert.False(t, s.IsLive())
	assert.False(t, s.SetAnswer("1", "early"), "answers before start must be rejected")

	s.Start(intPtr(60))
	assert.Equal(t, models.SessionInProgress, s.Status())
	assert.True(t, s.IsLive())
	assert.True(t, s.SetAnswer("1", "coal"))

	s.Submit()
	assert.Equal(t, models.SessionSubmitted, s.Status())
	assert.False(t, s.IsLive())
	assert.False(t, s.SetAnswer("2", "late"), "answers after submit must be rejected")
}

func TestSession_CountdownDecrementsPerSecond(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)
	s.Start(intPtr(10))

	clock.Advance(3)

	waitFor(t, func() bool {
		r := s.RemainingSeconds()
		return r != nil && *r == 7
	})
	assert.Equal(t, 3, s.ElapsedSeconds())
}

func TestSession_ExpiryAutoSubmitsOnce(t *testing.T) {
	clock := newFakeClock()
	var c collector
	s := New(clock, c.finalize)
	s.Start(intPtr(3))
	s.SetAnswer("q1", "answer one")

	clock.Advance(3)

	waitFor(t, func() bool { return c.deliveries() == 1 })
	assert.Equal(t, models.SessionExpired, s.Status())
	assert.Equal(t, models.EndReasonTimeout, c.reasons[0])
	assert.Equal(t, []models.SubmissionEntry{{QuestionID: "q1", AnswerValue: "answer one"}}, c.entries[0])

	if r := s.RemainingSeconds(); assert.NotNil(t, r) {
		assert.Equal(t, 0, *r)
	}

	// extra ticks after expiry change nothing
	clock.Advance(2)
	assert.Equal(t, 1, c.deliveries())
}

func TestSession_ManualSubmitThenExpiryDeliversOnce(t *testing.T) {
	clock := newFakeClock()
	var c collector
	s := New(clock, c.finalize)
	s.Start(intPtr(5))
	s.SetAnswer("q1", "value")

	entries := s.Submit()
	assert.Len(t, entries, 1)
	assert.Equal(t, models.SessionSubmitted, s.Status())
	assert.Equal(t, 1, c.deliveries())
	assert.Equal(t, models.EndReasonManual, c.reasons[0])

	// the racing countdown cannot finalize again
	clock.Advance(10)
	assert.Equal(t, models.SessionSubmitted, s.Status())
	assert.Equal(t, 1, c.deliveries())
}

func TestSession_DuplicateSubmitReturnsFrozenPayload(t *testing.T) {
	clock := newFakeClock()
	var c collector
	s := New(clock, c.finalize)
	s.Start(nil)
	s.SetAnswer("q1", "first")

	first := s.Submit()
	second := s.Submit()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.deliveries())
}

func TestSession_UntimedNeverExpires(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)
	s.Start(nil)

	assert.Nil(t, s.RemainingSeconds())
	clock.Advance(5)
	assert.Equal(t, models.SessionInProgress, s.Status())
}

func TestSession_CloseStopsWithoutSubmitting(t *testing.T) {
	clock := newFakeClock()
	var c collector
	s := New(clock, c.finalize)
	s.Start(intPtr(5))

	s.Close()
	assert.Equal(t, 0, c.deliveries())
	// closed but not finalized; status still reflects the live state machine
	assert.Equal(t, models.SessionInProgress, s.Status())
}

func TestSession_StartTwiceIsNoOp(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)
	s.Start(intPtr(30))
	s.Start(intPtr(99))

	if r := s.RemainingSeconds(); assert.NotNil(t, r) {
		assert.Equal(t, 30, *r)
	}
}

func TestSession_AnswersSnapshot(t *testing.T) {
	s := New(newFakeClock(), nil)
	s.Start(nil)
	s.SetAnswer("q1", "a")
	s.SetSubAnswer("q2", "gap_1", "b")

	snap := s.Answers()
	assert.Len(t, snap, 2)
	assert.Equal(t, "a", snap["q1"])
}
