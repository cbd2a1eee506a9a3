package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/linguaprep/exam-service/internal/models"
)

type AttemptEventType string

const (
	AttemptStarted   AttemptEventType = "attempt.started"
	AttemptSubmitted AttemptEventType = "attempt.submitted"
	AttemptExpired   AttemptEventType = "attempt.expired"
)

// AttemptEvent is published to the grading collaborator whenever an attempt
// changes lifecycle state. The submitted/expired variants carry the flat
// answer payload.
type AttemptEvent struct {
	ID        string           `json:"id"`
	Type      AttemptEventType `json:"type"`
	AttemptID string           `json:"attempt_id"`
	TaskID    uint             `json:"task_id"`
	StudentID string           `json:"student_id"`
	EndReason string           `json:"end_reason,omitempty"`

	Answers []models.SubmissionEntry `json:"answers,omitempty"`

	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAttemptEvent builds an event envelope with identity and source fields
// populated.
func NewAttemptEvent(eventType AttemptEventType, attempt *models.ExamAttempt) *AttemptEvent {
	return &AttemptEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		AttemptID: attempt.ID,
		TaskID:    attempt.TaskID,
		StudentID: attempt.StudentID,
		Source:    "exam-service",
		Version:   "1.0",
		Timestamp: time.Now(),
	}
}
