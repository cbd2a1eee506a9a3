package session

import (
	"strings"

	"github.com/linguaprep/exam-service/internal/models"
)

// Single-value answer objects are unwrapped by these keys, in priority order.
var unwrapKeys = []string{"answer", "user_input", "value"}

// BuildUserAnswersPayload flattens the answer set into the list the grading
// collaborator expects. Nil values and blank strings are dropped. A plain
// object carrying a conventional single-value key is unwrapped to that
// scalar; grouped {"values": {...}} objects pass through unmodified for the
// grader to interpret. Output follows the insertion order of the answer set.
func BuildUserAnswersPayload(answers *AnswerSet) []models.SubmissionEntry {
	entries := make([]models.SubmissionEntry, 0, answers.Len())

	answers.Each(func(questionID string, value interface{}) {
		if value == nil {
			return
		}
		if str, ok := value.(string); ok {
			if strings.TrimSpace(str) == "" {
				return
			}
			entries = append(entries, models.SubmissionEntry{QuestionID: questionID, AnswerValue: str})
			return
		}

		if obj, ok := value.(map[string]interface{}); ok {
			for _, key := range unwrapKeys {
				if inner, exists := obj[key]; exists {
					entries = append(entries, models.SubmissionEntry{QuestionID: questionID, AnswerValue: inner})
					return
				}
			}
		}

		entries = append(entries, models.SubmissionEntry{QuestionID: questionID, AnswerValue: value})
	})

	return entries
}
