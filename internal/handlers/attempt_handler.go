package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/linguaprep/exam-service/internal/models"
	"github.com/linguaprep/exam-service/internal/repositories"
	"github.com/linguaprep/exam-service/internal/services"
	"github.com/linguaprep/exam-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// ===== REQUEST STRUCTURES =====

type StartAttemptRequest struct {
	TaskID uint `json:"task_id" binding:"required"`
}

type SaveAnswerRequest struct {
	QuestionID string      `json:"question_id" binding:"required"`
	SubKey     string      `json:"sub_key,omitempty"`
	Value      interface{} `json:"value"`
}

// TimeRemainingResponse distinguishes "untimed" from "out of time":
// RemainingSeconds is absent for untimed attempts and zero at expiry.
type TimeRemainingResponse struct {
	AttemptID        string `json:"attempt_id"`
	RemainingSeconds *int   `json:"remaining_seconds,omitempty"`
}

// ===== LIFECYCLE ENDPOINTS =====

// StartAttempt opens (or resumes) the student's attempt on a task
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting attempt")

	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), req.TaskID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetCurrentAttempt returns the live attempt and its answer snapshot
func (h *AttemptHandler) GetCurrentAttempt(c *gin.Context) {
	taskID := h.parseIDParam(c, "task_id")
	if taskID == 0 {
		return
	}

	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	attempt, snapshot, err := h.attemptService.GetCurrent(c.Request.Context(), taskID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempt":  attempt,
		"snapshot": snapshot,
	})
}

// SaveAnswer records one answer (or grouped sub-answer) on the live attempt
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	attemptID := h.parseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	var err error
	if req.SubKey != "" {
		err = h.attemptService.SaveSubAnswer(c.Request.Context(), attemptID, studentID, req.QuestionID, req.SubKey, req.Value)
	} else {
		err = h.attemptService.SaveAnswer(c.Request.Context(), attemptID, studentID, req.QuestionID, req.Value)
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer saved"})
}

// SubmitAttempt finalizes the attempt on the student's request
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := h.parseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID)

	attempt, err := h.attemptService.Submit(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// HandleTimeout finalizes an attempt whose countdown ran out
func (h *AttemptHandler) HandleTimeout(c *gin.Context) {
	attemptID := h.parseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	h.LogRequest(c, "Handling attempt timeout", "attempt_id", attemptID)

	attempt, err := h.attemptService.HandleTimeout(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ListAttempts returns the student's attempt history with pagination
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := repositories.AttemptFilters{
		Status: models.SessionStatus(c.Query("status")),
	}
	if v := c.Query("task_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid task_id parameter",
			})
			return
		}
		taskID := uint(id)
		filters.TaskID = &taskID
	}
	if v := c.Query("limit"); v != "" {
		filters.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filters.Offset, _ = strconv.Atoi(v)
	}

	attempts, total, err := h.attemptService.History(c.Request.Context(), studentID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"total":    total,
		"limit":    filters.Limit,
		"offset":   filters.Offset,
	})
}

// ===== TIME AND PROGRESS ENDPOINTS =====

// GetTimeRemaining reports the server-side countdown
func (h *AttemptHandler) GetTimeRemaining(c *gin.Context) {
	attemptID := h.parseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	remaining, err := h.attemptService.TimeRemaining(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, TimeRemainingResponse{
		AttemptID:        attemptID,
		RemainingSeconds: remaining,
	})
}

// GetProgress reports answered vs total for a section
func (h *AttemptHandler) GetProgress(c *gin.Context) {
	attemptID := h.parseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}
	sectionID := h.parseIDParam(c, "section_id")
	if sectionID == 0 {
		return
	}

	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	progress, err := h.attemptService.Progress(c.Request.Context(), attemptID, studentID, sectionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ===== ERROR HANDLING =====

func (h *AttemptHandler) handleServiceError(c *gin.Context, err error) {
	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Task not found"})
	case errors.Is(err, services.ErrAttemptNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt is not active"})
	case errors.Is(err, services.ErrAttemptTimeExpired):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt time has expired"})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
