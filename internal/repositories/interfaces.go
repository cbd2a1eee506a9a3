package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/linguaprep/exam-service/internal/models"
)

// Repository aggregates the per-entity repositories behind one access point.
type Repository interface {
	Group() GroupRepository
	Question() QuestionRepository
	Task() TaskRepository
	Attempt() AttemptRepository

	Ping(ctx context.Context) error
	Close() error
}

// GroupRepository covers question-group persistence.
type GroupRepository interface {
	Create(ctx context.Context, group *models.QuestionGroup) error
	GetByID(ctx context.Context, id uint) (*models.QuestionGroup, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.QuestionGroup, error)
	Update(ctx context.Context, group *models.QuestionGroup) error
	Delete(ctx context.Context, id uint) error
	ListBySection(ctx context.Context, sectionID uint) ([]*models.QuestionGroup, error)
}

// QuestionRepository covers compiled question documents.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	GetByGroup(ctx context.Context, groupID uint) ([]*models.Question, error)
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)
}

// TaskRepository covers the task descriptors sessions are opened against.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uint) error
}

// AttemptRepository covers persisted attempt records.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id string) (*models.ExamAttempt, error)
	Update(ctx context.Context, attempt *models.ExamAttempt) error
	GetCurrent(ctx context.Context, taskID uint, studentID string) (*models.ExamAttempt, error)
	ListByStudent(ctx context.Context, studentID string, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)
}

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Type      *models.QuestionType `json:"type"`
	GroupID   *uint                `json:"group_id"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "number_start"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status   models.SessionStatus `json:"status"`
	TaskID   *uint                `json:"task_id"`
	DateFrom *time.Time           `json:"date_from"`
	DateTo   *time.Time           `json:"date_to"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// IsNotFoundError reports whether err is the storage layer's missing-row error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
