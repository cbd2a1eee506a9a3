package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
	SessionExpired    SessionStatus = "expired"
)

const (
	EndReasonManual  = "manual_submit"
	EndReasonTimeout = "time_out"
)

// Task is the descriptor a session is opened against. Duration sources are
// heterogeneous on purpose; the timing resolver picks exactly one.
type Task struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Title           string         `json:"title" gorm:"not null;size:200" validate:"required,max=200"`
	Skill           SectionSkill   `json:"skill" gorm:"index"`
	DurationMinutes *int           `json:"duration_minutes"`
	StartTime       *time.Time     `json:"start_time"`
	EndTime         *time.Time     `json:"end_time"`
	CustomContent   datatypes.JSON `json:"custom_content" gorm:"type:jsonb"` // CustomContent

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomContent is the nested task payload; only its time limit is
// consulted by the timing resolver.
type CustomContent struct {
	TimeLimitMinutes *int `json:"time_limit_minutes"`
}

// ExamAttempt is the persisted record of one student session. The live
// countdown and answer set are client-held; only submission output lands here.
type ExamAttempt struct {
	ID        string        `json:"id" gorm:"primaryKey;size:36"`
	TaskID    uint          `json:"task_id" gorm:"not null;index"`
	StudentID string        `json:"student_id" gorm:"not null;index;size:255"`
	Status    SessionStatus `json:"status" gorm:"default:not_started;index"`

	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	TimeLimit   *int       `json:"time_limit"` // seconds, nil when untimed
	TimeSpent   int        `json:"time_spent"` // seconds
	EndReason   *string    `json:"end_reason" gorm:"size:50"`

	// Flat submission payload as handed to the grading collaborator
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"` // []SubmissionEntry

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Task Task `json:"task" gorm:"foreignKey:TaskID"`
}

func (Task) TableName() string {
	return "tasks"
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// SubmissionEntry is one row of the flat grading payload.
type SubmissionEntry struct {
	QuestionID  string      `json:"question_id"`
	AnswerValue interface{} `json:"answer_value"`
}
