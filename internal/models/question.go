package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice    QuestionType = "multiple_choice"
	FillInBlank       QuestionType = "fill_blank"
	Matching          QuestionType = "matching"
	MapLabeling       QuestionType = "map_labeling"
	TrueFalseNotGiven QuestionType = "true_false_not_given"
	YesNoNotGiven     QuestionType = "yes_no_not_given"
	Summary           QuestionType = "summary"
)

type SectionSkill string

const (
	SkillListening SectionSkill = "listening"
	SkillReading   SectionSkill = "reading"
	SkillWriting   SectionSkill = "writing"
)

// QuestionGroup owns one or more questions of a single type within a
// passage section, sharing one instruction block.
type QuestionGroup struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	SectionID   uint         `json:"section_id" gorm:"not null;index"`
	Order       int          `json:"order" gorm:"not null;default:0"`
	Instruction string       `json:"instruction" gorm:"type:text"`
	Type        QuestionType `json:"question_type" gorm:"not null;index" validate:"required,question_type"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions" gorm:"foreignKey:GroupID"`
}

// Question is one compiled question document. CorrectAnswer and Metadata
// are keyed by token id; their key sets must exactly equal the token set
// discoverable in Text (enforced by the compiler before persistence).
type Question struct {
	ID      uint         `json:"id" gorm:"primaryKey"`
	GroupID uint         `json:"group_id" gorm:"not null;index"`
	Type    QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`
	Text    string       `json:"text" gorm:"type:text;not null" validate:"required"`

	// Numbering. Start == End for a single question; End > Start marks a
	// multi-part question sharing one prompt (e.g. a summary block).
	NumberStart int `json:"question_number_start" gorm:"not null" validate:"min=1"`
	NumberEnd   int `json:"question_number_end" gorm:"not null" validate:"min=1,gtefield=NumberStart"`

	// Answer key and per-token configuration, stored as JSONB
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb"` // AnswerKey
	Metadata      datatypes.JSON `json:"metadata" gorm:"type:jsonb"`       // MetadataMap

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Group QuestionGroup `json:"group" gorm:"foreignKey:GroupID"`
}

func (QuestionGroup) TableName() string {
	return "question_groups"
}

func (Question) TableName() string {
	return "questions"
}

// IsGrouped reports whether the question spans multiple displayed numbers.
func (q *Question) IsGrouped() bool {
	return q.NumberEnd > q.NumberStart
}

// SubCount is how many displayed numbers the question occupies.
func (q *Question) SubCount() int {
	if q.NumberEnd < q.NumberStart {
		return 1
	}
	return q.NumberEnd - q.NumberStart + 1
}

// DisplayNumber returns the externally visible number for sub-index i.
// NumberStart is authoritative; numbers are derived, never stored per sub-item.
func (q *Question) DisplayNumber(i int) int {
	return q.NumberStart + i
}
