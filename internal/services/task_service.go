package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/linguaprep/exam-service/internal/models"
	"github.com/linguaprep/exam-service/internal/repositories"
	"github.com/linguaprep/exam-service/internal/timing"
	"github.com/linguaprep/exam-service/internal/validator"
)

// TaskService manages the task descriptors attempts are opened against.
type TaskService interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest, creatorID string) (*models.Task, error)
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	UpdateTask(ctx context.Context, id uint, req *CreateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, id uint) error
}

type taskService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTaskService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) TaskService {
	return &taskService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// CreateTaskRequest accepts the duration in any of the upstream forms: whole
// minutes, "HH:MM:SS", or ISO-8601 "PT...". It is normalized to minutes
// before the task is stored.
type CreateTaskRequest struct {
	Title         string              `json:"title" validate:"required,max=200"`
	Skill         models.SectionSkill `json:"skill" validate:"omitempty,section_skill"`
	Duration      interface{}         `json:"duration,omitempty"`
	StartTime     *time.Time          `json:"start_time,omitempty"`
	EndTime       *time.Time          `json:"end_time,omitempty"`
	CustomContent datatypes.JSON      `json:"custom_content,omitempty"`
}

func (s *taskService) CreateTask(ctx context.Context, req *CreateTaskRequest, creatorID string) (*models.Task, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		return nil, NewValidationError("end_time", "end time must be after start time", req.EndTime)
	}

	task := &models.Task{
		Title:           req.Title,
		Skill:           req.Skill,
		DurationMinutes: timing.ParseDurationToMinutes(req.Duration),
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		CustomContent:   req.CustomContent,
		CreatedBy:       creatorID,
	}

	if err := s.repo.Task().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("Created task",
		"task_id", task.ID,
		"title", task.Title,
		"duration_minutes", task.DurationMinutes,
		"creator_id", creatorID)

	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	task, err := s.repo.Task().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, id uint, req *CreateTaskRequest) (*models.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	task.Title = req.Title
	task.Skill = req.Skill
	task.DurationMinutes = timing.ParseDurationToMinutes(req.Duration)
	task.StartTime = req.StartTime
	task.EndTime = req.EndTime
	task.CustomContent = req.CustomContent

	if err := s.repo.Task().Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, id uint) error {
	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	return s.repo.Task().Delete(ctx, id)
}
