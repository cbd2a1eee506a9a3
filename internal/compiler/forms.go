package compiler

import "github.com/linguaprep/exam-service/internal/models"

// QuestionForm is the closed set of raw authoring inputs, one variant per
// question type. Compile dispatches on the concrete type, so adding a new
// question type means adding a variant and its compile branch together.
type QuestionForm interface {
	QuestionType() models.QuestionType
}

// MultipleChoiceForm compiles to a question with exactly one answer slot.
// Option identifiers are letters assigned by position (A, B, ...).
type MultipleChoiceForm struct {
	Text            string           `json:"text" validate:"required"`
	Options         []string         `json:"options" validate:"min=2,max=10"`
	SelectedIndexes []int            `json:"selected_indexes" validate:"min=1"`
	Display         models.InputKind `json:"display" validate:"omitempty,input_kind"`
}

func (MultipleChoiceForm) QuestionType() models.QuestionType { return models.MultipleChoice }

// FillInForm covers fill-in / sentence completion. Accepted answers per
// token come as one comma-separated author string.
type FillInForm struct {
	Text         string            `json:"text" validate:"required"`
	Answers      map[string]string `json:"answers" validate:"required"`
	MaxWords     map[string]string `json:"max_words"`
	Placeholders map[string]string `json:"placeholders"`
}

func (FillInForm) QuestionType() models.QuestionType { return models.FillInBlank }

// SummaryForm is fill-in over pasted pre-numbered prose; numbering may fall
// back to a leading numeral in the text.
type SummaryForm struct {
	Text     string            `json:"text" validate:"required"`
	Answers  map[string]string `json:"answers" validate:"required"`
	MaxWords map[string]string `json:"max_words"`
}

func (SummaryForm) QuestionType() models.QuestionType { return models.Summary }

// MapLabelingForm uses zone tokens; the answer per token is one zone letter.
type MapLabelingForm struct {
	Text       string            `json:"text" validate:"required"`
	Answers    map[string]string `json:"answers" validate:"required"`
	OptionsCSV string            `json:"options_csv"`
}

func (MapLabelingForm) QuestionType() models.QuestionType { return models.MapLabeling }

// MatchingForm maps each token to a label; the stored answer is the leading
// letter split off the label ("C. Some heading" -> "C").
type MatchingForm struct {
	Text       string            `json:"text" validate:"required"`
	Answers    map[string]string `json:"answers" validate:"required"`
	Labels     []string          `json:"labels" validate:"min=2"`
	AllowReuse bool              `json:"allow_reuse"`
}

func (MatchingForm) QuestionType() models.QuestionType { return models.Matching }

// TrueFalseForm covers both closed three-way vocabularies; Variant selects
// TRUE/FALSE/NOT GIVEN versus YES/NO/NOT GIVEN.
type TrueFalseForm struct {
	Text    string              `json:"text" validate:"required"`
	Variant models.QuestionType `json:"variant" validate:"required"`
	Answer  string              `json:"answer" validate:"required"`
}

func (f TrueFalseForm) QuestionType() models.QuestionType { return f.Variant }
