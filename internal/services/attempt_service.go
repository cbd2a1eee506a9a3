package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linguaprep/exam-service/internal/cache"
	"github.com/linguaprep/exam-service/internal/events"
	"github.com/linguaprep/exam-service/internal/models"
	"github.com/linguaprep/exam-service/internal/repositories"
	"github.com/linguaprep/exam-service/internal/session"
	"github.com/linguaprep/exam-service/internal/timing"
)

// Untimed attempts keep their snapshot for a day; timed ones for the limit
// plus a grace window covering slow submits and reconnects.
const (
	defaultSnapshotTTL  = 24 * time.Hour
	snapshotGracePeriod = 30 * time.Minute
)

// AttemptService is the server-side mirror of the client-held session: it
// opens attempts against a task, keeps a recoverable answer snapshot, and
// finalizes exactly once on submit or timeout.
type AttemptService interface {
	Start(ctx context.Context, taskID uint, studentID string) (*models.ExamAttempt, error)
	GetCurrent(ctx context.Context, taskID uint, studentID string) (*models.ExamAttempt, *cache.SessionSnapshot, error)

	SaveAnswer(ctx context.Context, attemptID, studentID, questionID string, value interface{}) error
	SaveSubAnswer(ctx context.Context, attemptID, studentID, questionID, subKey string, value interface{}) error

	Submit(ctx context.Context, attemptID, studentID string) (*models.ExamAttempt, error)
	HandleTimeout(ctx context.Context, attemptID string) (*models.ExamAttempt, error)

	TimeRemaining(ctx context.Context, attemptID, studentID string) (*int, error)
	Progress(ctx context.Context, attemptID, studentID string, sectionID uint) (*AttemptProgress, error)
	History(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error)
}

// AttemptProgress is the answered/total pair driving progress indicators.
type AttemptProgress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

type attemptService struct {
	repo      repositories.Repository
	cache     cache.SessionCache
	publisher events.EventPublisher
	logger    *slog.Logger
	clock     session.Clock
}

func NewAttemptService(repo repositories.Repository, sessionCache cache.SessionCache, publisher events.EventPublisher, logger *slog.Logger, clock session.Clock) AttemptService {
	if clock == nil {
		clock = session.NewRealClock()
	}
	return &attemptService{
		repo:      repo,
		cache:     sessionCache,
		publisher: publisher,
		logger:    logger,
		clock:     clock,
	}
}

// ===== LIFECYCLE =====

func (s *attemptService) Start(ctx context.Context, taskID uint, studentID string) (*models.ExamAttempt, error) {
	task, err := s.repo.Task().GetByID(ctx, taskID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	// A student keeps at most one live attempt per task; starting again
	// resumes it instead of opening a second countdown.
	if current, err := s.repo.Attempt().GetCurrent(ctx, taskID, studentID); err == nil {
		s.logger.Info("Resuming existing attempt",
			"attempt_id", current.ID,
			"task_id", taskID,
			"student_id", studentID)
		return current, nil
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check current attempt: %w", err)
	}

	now := s.clock.Now()
	attempt := &models.ExamAttempt{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		StudentID: studentID,
		Status:    models.SessionInProgress,
		StartedAt: &now,
		TimeLimit: timing.CalculateExamDuration(task, now),
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.publish(ctx, events.NewAttemptEvent(events.AttemptStarted, attempt))

	s.logger.Info("Started attempt",
		"attempt_id", attempt.ID,
		"task_id", taskID,
		"student_id", studentID,
		"time_limit", attempt.TimeLimit)

	return attempt, nil
}

func (s *attemptService) GetCurrent(ctx context.Context, taskID uint, studentID string) (*models.ExamAttempt, *cache.SessionSnapshot, error) {
	attempt, err := s.repo.Attempt().GetCurrent(ctx, taskID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get current attempt: %w", err)
	}

	snapshot, err := s.cache.Load(ctx, attempt.ID)
	if err != nil {
		// The snapshot is best effort; a cache outage must not block resume.
		s.logger.Warn("Failed to load session snapshot", "attempt_id", attempt.ID, "error", err)
		snapshot = nil
	}
	return attempt, snapshot, nil
}

// ===== ANSWER RECORDING =====

func (s *attemptService) SaveAnswer(ctx context.Context, attemptID, studentID, questionID string, value interface{}) error {
	return s.saveAnswer(ctx, attemptID, studentID, func(answers *session.AnswerSet) {
		answers.Set(questionID, value)
	})
}

func (s *attemptService) SaveSubAnswer(ctx context.Context, attemptID, studentID, questionID, subKey string, value interface{}) error {
	return s.saveAnswer(ctx, attemptID, studentID, func(answers *session.AnswerSet) {
		answers.SetSub(questionID, subKey, value)
	})
}

func (s *attemptService) saveAnswer(ctx context.Context, attemptID, studentID string, record func(*session.AnswerSet)) error {
	attempt, err := s.activeAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}

	if s.expired(attempt) {
		if _, err := s.finalize(ctx, attempt, models.SessionExpired, models.EndReasonTimeout); err != nil {
			return err
		}
		return ErrAttemptTimeExpired
	}

	snapshot, err := s.cache.Load(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("failed to load session snapshot: %w", err)
	}

	answers := session.NewAnswerSet()
	if snapshot != nil {
		answers = session.NewAnswerSetFromSnapshot(snapshot.Answers)
	}
	record(answers)

	remaining := s.remainingSeconds(attempt)
	updated := &cache.SessionSnapshot{
		AttemptID:        attemptID,
		Answers:          answers.Snapshot(),
		RemainingSeconds: remaining,
		SavedAt:          s.clock.Now(),
	}
	if err := s.cache.Save(ctx, updated, s.snapshotTTL(attempt)); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

// ===== FINALIZATION =====

// Submit finalizes an attempt on the student's request. A duplicate submit
// is a no-op returning the frozen record. A submit arriving after the time
// limit finalizes as a timeout instead, matching the countdown engine's race
// rule.
func (s *attemptService) Submit(ctx context.Context, attemptID, studentID string) (*models.ExamAttempt, error) {
	attempt, err := s.getOwned(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	if attempt.Status == models.SessionSubmitted || attempt.Status == models.SessionExpired {
		return attempt, nil
	}
	if attempt.Status != models.SessionInProgress {
		return nil, ErrAttemptNotActive
	}

	if s.expired(attempt) {
		return s.finalize(ctx, attempt, models.SessionExpired, models.EndReasonTimeout)
	}
	return s.finalize(ctx, attempt, models.SessionSubmitted, models.EndReasonManual)
}

// HandleTimeout finalizes an attempt whose countdown ran out, reported by a
// client tick or a background sweep. Already finalized attempts pass through
// unchanged.
func (s *attemptService) HandleTimeout(ctx context.Context, attemptID string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.Status != models.SessionInProgress {
		return attempt, nil
	}
	if !s.expired(attempt) {
		return nil, ErrAttemptNotActive
	}
	return s.finalize(ctx, attempt, models.SessionExpired, models.EndReasonTimeout)
}

func (s *attemptService) finalize(ctx context.Context, attempt *models.ExamAttempt, status models.SessionStatus, endReason string) (*models.ExamAttempt, error) {
	snapshot, err := s.cache.Load(ctx, attempt.ID)
	if err != nil {
		s.logger.Warn("Failed to load session snapshot at finalize", "attempt_id", attempt.ID, "error", err)
	}

	answers := session.NewAnswerSet()
	if snapshot != nil {
		answers = session.NewAnswerSetFromSnapshot(snapshot.Answers)
	}
	entries := session.BuildUserAnswersPayload(answers)

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission payload: %w", err)
	}

	now := s.clock.Now()
	attempt.Status = status
	attempt.SubmittedAt = &now
	attempt.EndReason = &endReason
	attempt.Answers = payload
	if attempt.StartedAt != nil {
		attempt.TimeSpent = int(now.Sub(*attempt.StartedAt).Seconds())
		if attempt.TimeLimit != nil && attempt.TimeSpent > *attempt.TimeLimit {
			attempt.TimeSpent = *attempt.TimeLimit
		}
	}

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}

	eventType := events.AttemptSubmitted
	if status == models.SessionExpired {
		eventType = events.AttemptExpired
	}
	event := events.NewAttemptEvent(eventType, attempt)
	event.EndReason = endReason
	event.Answers = entries
	s.publish(ctx, event)

	if err := s.cache.Delete(ctx, attempt.ID); err != nil {
		s.logger.Warn("Failed to delete session snapshot", "attempt_id", attempt.ID, "error", err)
	}

	s.logger.Info("Finalized attempt",
		"attempt_id", attempt.ID,
		"status", status,
		"end_reason", endReason,
		"answer_count", len(entries),
		"time_spent", attempt.TimeSpent)

	return attempt, nil
}

// ===== TIME AND PROGRESS =====

func (s *attemptService) TimeRemaining(ctx context.Context, attemptID, studentID string) (*int, error) {
	attempt, err := s.activeAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	return s.remainingSeconds(attempt), nil
}

func (s *attemptService) Progress(ctx context.Context, attemptID, studentID string, sectionID uint) (*AttemptProgress, error) {
	attempt, err := s.getOwned(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	groups, err := s.repo.Group().ListBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list question groups: %w", err)
	}

	var questions []*models.Question
	total := 0
	for _, group := range groups {
		groupQuestions, err := s.repo.Question().GetByGroup(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list questions for group %d: %w", group.ID, err)
		}
		questions = append(questions, groupQuestions...)
		for _, q := range groupQuestions {
			total += q.SubCount()
		}
	}

	snapshot, err := s.cache.Load(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	answers := session.NewAnswerSet()
	if snapshot != nil {
		answers = session.NewAnswerSetFromSnapshot(snapshot.Answers)
	}

	return &AttemptProgress{
		Answered: session.CountAnswered(answers, session.RefsFromQuestions(questions)),
		Total:    total,
	}, nil
}

// History lists the student's own attempts, newest first, optionally filtered
// by status or task.
func (s *attemptService) History(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	attempts, total, err := s.repo.Attempt().ListByStudent(ctx, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

// ===== HELPERS =====

func (s *attemptService) getOwned(ctx context.Context, attemptID, studentID string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, "attempt", "access", "attempt belongs to another student")
	}
	return attempt, nil
}

func (s *attemptService) activeAttempt(ctx context.Context, attemptID, studentID string) (*models.ExamAttempt, error) {
	attempt, err := s.getOwned(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.SessionInProgress {
		return nil, ErrAttemptNotActive
	}
	return attempt, nil
}

func (s *attemptService) expired(attempt *models.ExamAttempt) bool {
	remaining := s.remainingSeconds(attempt)
	return remaining != nil && *remaining <= 0
}

// remainingSeconds is nil for untimed attempts and never negative otherwise.
func (s *attemptService) remainingSeconds(attempt *models.ExamAttempt) *int {
	if attempt.TimeLimit == nil || attempt.StartedAt == nil {
		return nil
	}
	remaining := *attempt.TimeLimit - int(s.clock.Now().Sub(*attempt.StartedAt).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

func (s *attemptService) snapshotTTL(attempt *models.ExamAttempt) time.Duration {
	if attempt.TimeLimit == nil {
		return defaultSnapshotTTL
	}
	return time.Duration(*attempt.TimeLimit)*time.Second + snapshotGracePeriod
}

func (s *attemptService) publish(ctx context.Context, event *events.AttemptEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAttemptEvent(ctx, event); err != nil {
		// A publish failure must not fail the student-facing operation.
		s.logger.Error("Failed to publish attempt event",
			"event_type", event.Type,
			"attempt_id", event.AttemptID,
			"error", err)
	}
}
