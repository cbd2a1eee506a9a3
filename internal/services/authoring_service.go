package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/linguaprep/exam-service/internal/compiler"
	"github.com/linguaprep/exam-service/internal/models"
	"github.com/linguaprep/exam-service/internal/repositories"
	"github.com/linguaprep/exam-service/internal/token"
	"github.com/linguaprep/exam-service/internal/validator"
)

// AuthoringService covers the editor-side workflow: managing question
// groups, inserting placeholder tokens into prompt text, and compiling raw
// form input into canonical question documents.
type AuthoringService interface {
	CreateGroup(ctx context.Context, req *CreateGroupRequest, creatorID string) (*models.QuestionGroup, error)
	GetGroupWithQuestions(ctx context.Context, id uint) (*models.QuestionGroup, error)
	DeleteGroup(ctx context.Context, id uint) error

	InsertToken(ctx context.Context, req *InsertTokenRequest) (*InsertTokenResponse, error)
	CompileQuestion(ctx context.Context, req *CompileQuestionRequest, creatorID string) (*models.Question, error)
	UpdateQuestion(ctx context.Context, id uint, req *CompileQuestionRequest) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id uint) error
	ListQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
}

type authoringService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAuthoringService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AuthoringService {
	return &authoringService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== REQUEST / RESPONSE TYPES =====

type CreateGroupRequest struct {
	SectionID   uint                `json:"section_id" validate:"required"`
	Order       int                 `json:"order"`
	Instruction string              `json:"instruction"`
	Type        models.QuestionType `json:"question_type" validate:"required,question_type"`
}

// InsertTokenRequest asks for a fresh token literal spliced into the prompt
// at the cursor. The family follows the authoring context's question type.
type InsertTokenRequest struct {
	Text         string              `json:"text"`
	Cursor       int                 `json:"cursor" validate:"min=0"`
	QuestionType models.QuestionType `json:"question_type" validate:"required,question_type"`

	// Existing per-token configuration, carried so defaults and pruning can
	// be applied in the same round trip.
	Metadata models.MetadataMap `json:"metadata"`
}

type InsertTokenResponse struct {
	Text     string             `json:"text"`
	Cursor   int                `json:"cursor"`
	Tokens   []models.Token     `json:"tokens"`
	Metadata models.MetadataMap `json:"metadata"`
}

// CompileQuestionRequest is the raw per-type form surface; which fields are
// consulted depends on Type.
type CompileQuestionRequest struct {
	GroupID     uint                `json:"group_id" validate:"required"`
	Type        models.QuestionType `json:"type" validate:"required,question_type"`
	Text        string              `json:"text" validate:"required"`
	NumberStart int                 `json:"question_number_start"`
	NumberEnd   int                 `json:"question_number_end"`

	// Multiple choice
	Options         []string         `json:"options,omitempty"`
	SelectedIndexes []int            `json:"selected_indexes,omitempty"`
	Display         models.InputKind `json:"display,omitempty" validate:"omitempty,input_kind"`

	// Fill-in / summary / matching / map labeling
	Answers      map[string]string `json:"answers,omitempty"`
	MaxWords     map[string]string `json:"max_words,omitempty"`
	Placeholders map[string]string `json:"placeholders,omitempty"`
	OptionsCSV   string            `json:"options_csv,omitempty"`
	Labels       []string          `json:"labels,omitempty"`
	AllowReuse   bool              `json:"allow_reuse,omitempty"`

	// True/false/not-given variants
	Answer string `json:"answer,omitempty"`
}

// ===== GROUP OPERATIONS =====

func (s *authoringService) CreateGroup(ctx context.Context, req *CreateGroupRequest, creatorID string) (*models.QuestionGroup, error) {
	s.logger.Info("Creating question group",
		"section_id", req.SectionID,
		"question_type", req.Type,
		"creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	group := &models.QuestionGroup{
		SectionID:   req.SectionID,
		Order:       req.Order,
		Instruction: req.Instruction,
		Type:        req.Type,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Group().Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create question group: %w", err)
	}

	return group, nil
}

func (s *authoringService) GetGroupWithQuestions(ctx context.Context, id uint) (*models.QuestionGroup, error) {
	group, err := s.repo.Group().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get question group: %w", err)
	}
	return group, nil
}

func (s *authoringService) DeleteGroup(ctx context.Context, id uint) error {
	group, err := s.repo.Group().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to get question group: %w", err)
	}
	if len(group.Questions) > 0 {
		return ErrGroupNotDeletable
	}
	return s.repo.Group().Delete(ctx, id)
}

// ===== TOKEN OPERATIONS =====

func (s *authoringService) InsertToken(ctx context.Context, req *InsertTokenRequest) (*InsertTokenResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	family := token.FamilyFor(req.QuestionType)
	text, cursor := token.InsertAt(req.Text, req.Cursor, family)

	// Re-scan and reconcile metadata in one pass: defaults for the new
	// token, orphans dropped for any the author deleted by hand.
	tokens := token.Extract(text, family)
	meta := token.EnsureDefaults(tokens, req.Metadata)
	meta, _ = token.Prune(tokens, meta, nil)

	s.logger.Debug("Inserted token",
		"family", family,
		"token_count", len(tokens),
		"cursor", cursor)

	return &InsertTokenResponse{
		Text:     text,
		Cursor:   cursor,
		Tokens:   tokens,
		Metadata: meta,
	}, nil
}

// ===== QUESTION OPERATIONS =====

func (s *authoringService) CompileQuestion(ctx context.Context, req *CompileQuestionRequest, creatorID string) (*models.Question, error) {
	s.logger.Info("Compiling question",
		"group_id", req.GroupID,
		"type", req.Type,
		"creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	group, err := s.repo.Group().GetByID(ctx, req.GroupID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get question group: %w", err)
	}
	if group.Type != req.Type {
		return nil, ErrGroupTypeMismatch
	}

	question, err := s.compile(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to save question: %w", err)
	}

	s.logger.Info("Question compiled",
		"question_id", question.ID,
		"number_start", question.NumberStart,
		"number_end", question.NumberEnd)

	return question, nil
}

func (s *authoringService) UpdateQuestion(ctx context.Context, id uint, req *CompileQuestionRequest) (*models.Question, error) {
	existing, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	question, err := s.compile(req)
	if err != nil {
		return nil, err
	}

	question.ID = existing.ID
	question.CreatedAt = existing.CreatedAt
	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	return question, nil
}

func (s *authoringService) DeleteQuestion(ctx context.Context, id uint) error {
	if _, err := s.repo.Question().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	return s.repo.Question().Delete(ctx, id)
}

func (s *authoringService) ListQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	questions, total, err := s.repo.Question().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

// compile builds the typed form variant and runs it through the compiler.
// The compiler's validation failures pass through untouched so handlers can
// surface them to the author.
func (s *authoringService) compile(req *CompileQuestionRequest) (*models.Question, error) {
	form, err := formFromRequest(req)
	if err != nil {
		return nil, err
	}

	question, err := compiler.Compile(form, compiler.Options{
		GroupID:     req.GroupID,
		NumberStart: req.NumberStart,
		NumberEnd:   req.NumberEnd,
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

func formFromRequest(req *CompileQuestionRequest) (compiler.QuestionForm, error) {
	switch req.Type {
	case models.MultipleChoice:
		return compiler.MultipleChoiceForm{
			Text:            req.Text,
			Options:         req.Options,
			SelectedIndexes: req.SelectedIndexes,
			Display:         req.Display,
		}, nil
	case models.FillInBlank:
		return compiler.FillInForm{
			Text:         req.Text,
			Answers:      req.Answers,
			MaxWords:     req.MaxWords,
			Placeholders: req.Placeholders,
		}, nil
	case models.Summary:
		return compiler.SummaryForm{
			Text:     req.Text,
			Answers:  req.Answers,
			MaxWords: req.MaxWords,
		}, nil
	case models.MapLabeling:
		return compiler.MapLabelingForm{
			Text:       req.Text,
			Answers:    req.Answers,
			OptionsCSV: req.OptionsCSV,
		}, nil
	case models.Matching:
		return compiler.MatchingForm{
			Text:       req.Text,
			Answers:    req.Answers,
			Labels:     req.Labels,
			AllowReuse: req.AllowReuse,
		}, nil
	case models.TrueFalseNotGiven, models.YesNoNotGiven:
		return compiler.TrueFalseForm{
			Text:    req.Text,
			Variant: req.Type,
			Answer:  req.Answer,
		}, nil
	default:
		return nil, ErrQuestionInvalidType
	}
}

// decodeAnswerKey unmarshals a stored answer-key column; shared by the
// export service.
func decodeAnswerKey(q *models.Question) (models.AnswerKey, models.MetadataMap, error) {
	var key models.AnswerKey
	if len(q.CorrectAnswer) > 0 {
		if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
			return nil, nil, fmt.Errorf("failed to decode answer key for question %d: %w", q.ID, err)
		}
	}
	var meta models.MetadataMap
	if len(q.Metadata) > 0 {
		if err := json.Unmarshal(q.Metadata, &meta); err != nil {
			return nil, nil, fmt.Errorf("failed to decode metadata for question %d: %w", q.ID, err)
		}
	}
	return key, meta, nil
}
