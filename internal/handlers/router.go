package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linguaprep/exam-service/internal/services"
	"github.com/linguaprep/exam-service/internal/utils"
)

type HandlerManager struct {
	questionHandler *QuestionHandler
	attemptHandler  *AttemptHandler
	pinger          Pinger
}

// Pinger is the health probe over the storage layer.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewHandlerManager(
	authoringService services.AuthoringService,
	taskService services.TaskService,
	exportService services.ExportService,
	attemptService services.AttemptService,
	pinger Pinger,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		questionHandler: NewQuestionHandler(authoringService, taskService, exportService, logger),
		attemptHandler:  NewAttemptHandler(attemptService, logger),
		pinger:          pinger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	{
		// Question group routes
		groups := v1.Group("/groups")
		{
			groups.POST("", hm.questionHandler.CreateGroup)
			groups.GET("/:id", hm.questionHandler.GetGroup)
			groups.DELETE("/:id", hm.questionHandler.DeleteGroup)
		}

		// Question authoring routes
		questions := v1.Group("/questions")
		{
			questions.POST("", hm.questionHandler.CompileQuestion)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.POST("/tokens", hm.questionHandler.InsertToken)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		// Task routes
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", hm.questionHandler.CreateTask)
			tasks.GET("/:id", hm.questionHandler.GetTask)
			tasks.PUT("/:id", hm.questionHandler.UpdateTask)
			tasks.DELETE("/:id", hm.questionHandler.DeleteTask)
		}

		// Export routes
		v1.GET("/sections/:section_id/answer-key", hm.questionHandler.ExportAnswerKey)

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/current/:task_id", hm.attemptHandler.GetCurrentAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.SaveAnswer)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/timeout", hm.attemptHandler.HandleTimeout)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)
			attempts.GET("/:id/progress/:section_id", hm.attemptHandler.GetProgress)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if hm.pinger != nil {
		if err := hm.pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "exam-service",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "exam-service",
	})
}
