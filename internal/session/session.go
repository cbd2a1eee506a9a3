package session

import (
	"sync"
	"time"

	"github.com/linguaprep/exam-service/internal/models"
)

// FinalizeFunc receives the frozen submission payload exactly once, whether
// the session ended by manual submit or by countdown expiry.
type FinalizeFunc func(entries []models.SubmissionEntry, endReason string)

// Session is the state machine for one student attempt:
//
//	not_started -> in_progress -> {submitted | expired}
//
// While in progress a one-second tick decrements the remaining time; hitting
// zero forces expiry, which runs the same submission path as a manual submit.
// A latch guarantees the payload is delivered once even when expiry and a
// manual submit race.
type Session struct {
	mu sync.Mutex

	status    models.SessionStatus
	answers   *AnswerSet
	clock     Clock
	finalize  FinalizeFunc
	startedAt time.Time

	// nil remaining means untimed
	remaining *int

	submitted bool
	frozen    []models.SubmissionEntry
	done      chan struct{}
	ticker    Ticker
}

// New creates a session in the not_started state. finalize may be nil when
// the host collects the payload from Submit's return value instead.
func New(clock Clock, finalize FinalizeFunc) *Session {
	if clock == nil {
		clock = NewRealClock()
	}
	return &Session{
		status:   models.SessionNotStarted,
		answers:  NewAnswerSet(),
		clock:    clock,
		finalize: finalize,
	}
}

// Start enters in_progress with the resolved duration in seconds, or untimed
// when durationSeconds is nil. Starting an already started session is a no-op.
func (s *Session) Start(durationSeconds *int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionNotStarted {
		return
	}

	s.status = models.SessionInProgress
	s.startedAt = s.clock.Now()

	if durationSeconds != nil {
		r := *durationSeconds
		s.remaining = &r
		s.done = make(chan struct{})
		s.ticker = s.clock.NewTicker(time.Second)
		go s.run()
	}
}

func (s *Session) run() {
	for {
		select {
		case <-s.ticker.C():
			if s.tick() {
				return
			}
		case <-s.done:
			return
		}
	}
}

// tick decrements the countdown and reports whether the loop should stop.
func (s *Session) tick() bool {
	s.mu.Lock()

	if s.status != models.SessionInProgress || s.remaining == nil {
		s.mu.Unlock()
		return true
	}

	*s.remaining--
	if *s.remaining > 0 {
		s.mu.Unlock()
		return false
	}

	*s.remaining = 0
	entries, reason, deliver := s.finalizeLocked(models.SessionExpired, models.EndReasonTimeout)
	s.mu.Unlock()

	if deliver && s.finalize != nil {
		s.finalize(entries, reason)
	}
	return true
}

// Submit freezes the answer set and returns the submission payload. The
// second and any later call — including the expiry path racing a manual
// click — is a silent no-op returning the already frozen payload.
func (s *Session) Submit() []models.SubmissionEntry {
	s.mu.Lock()
	entries, reason, deliver := s.finalizeLocked(models.SessionSubmitted, models.EndReasonManual)
	s.mu.Unlock()

	if deliver && s.finalize != nil {
		s.finalize(entries, reason)
	}
	return entries
}

// finalizeLocked is the single submission path; callers hold the mutex.
func (s *Session) finalizeLocked(status models.SessionStatus, reason string) ([]models.SubmissionEntry, string, bool) {
	if s.submitted {
		return s.frozen, reason, false
	}
	s.submitted = true
	s.status = status
	s.frozen = BuildUserAnswersPayload(s.answers)
	s.stopTimerLocked()
	return s.frozen, reason, true
}

// Close cancels the countdown without submitting, for view teardown while
// the session is still live. Closing a finished session is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

func (s *Session) stopTimerLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// SetAnswer records the answer for a question. Answers are only accepted
// while the session is in progress.
func (s *Session) SetAnswer(questionID string, value interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionInProgress {
		return false
	}
	s.answers.Set(questionID, value)
	return true
}

// SetSubAnswer records one sub-answer of a grouped question.
func (s *Session) SetSubAnswer(questionID, subKey string, value interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionInProgress {
		return false
	}
	s.answers.SetSub(questionID, subKey, value)
	return true
}

// CountAnswered reports how many questions, counting grouped sub-questions
// individually, currently hold a non-empty answer.
func (s *Session) CountAnswered(questions []QuestionRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CountAnswered(s.answers, questions)
}

func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsLive reports whether a countdown-bearing attempt is currently running;
// the hosting view uses this to gate navigation-away confirmation.
func (s *Session) IsLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == models.SessionInProgress
}

// RemainingSeconds returns the countdown value, or nil when untimed.
func (s *Session) RemainingSeconds() *int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remaining == nil {
		return nil
	}
	r := *s.remaining
	return &r
}

// ElapsedSeconds measures from the start timestamp against the clock.
func (s *Session) ElapsedSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.SessionNotStarted {
		return 0
	}
	return int(s.clock.Now().Sub(s.startedAt).Seconds())
}

// Answers exposes a serializable snapshot of the in-progress answer set.
func (s *Session) Answers() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Snapshot()
}
