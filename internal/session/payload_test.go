package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linguaprep/exam-service/internal/models"
)

func TestBuildUserAnswersPayload(t *testing.T) {
	t.Run("drops nil and blank answers", func(t *testing.T) {
		answers := NewAnswerSet()
		answers.Set("1", "coal")
		answers.Set("2", nil)
		answers.Set("3", "   ")
		answers.Set("4", "steam")

		entries := BuildUserAnswersPayload(answers)

		assert.Equal(t, []models.SubmissionEntry{
			{QuestionID: "1", AnswerValue: "coal"},
			{QuestionID: "4", AnswerValue: "steam"},
		}, entries)
	})

	t.Run("unwraps single-value objects by key priority", func(t *testing.T) {
		answers := NewAnswerSet()
		answers.Set("1", map[string]interface{}{"answer": "B"})
		answers.Set("2", map[string]interface{}{"user_input": "governor"})
		answers.Set("3", map[string]interface{}{"value": "C"})
		// "answer" outranks "value" when both are present
		answers.Set("4", map[string]interface{}{"value": "low", "answer": "high"})

		entries := BuildUserAnswersPayload(answers)

		assert.Equal(t, "B", entries[0].AnswerValue)
		assert.Equal(t, "governor", entries[1].AnswerValue)
		assert.Equal(t, "C", entries[2].AnswerValue)
		assert.Equal(t, "high", entries[3].AnswerValue)
	})

	t.Run("grouped values pass through unmodified", func(t *testing.T) {
		answers := NewAnswerSet()
		answers.SetSub("5", "gap_1", "iron")
		answers.SetSub("5", "gap_2", "coal")

		entries := BuildUserAnswersPayload(answers)

		assert.Len(t, entries, 1)
		wrapper, ok := entries[0].AnswerValue.(map[string]interface{})
		assert.True(t, ok)
		inner := wrapper["values"].(map[string]interface{})
		assert.Equal(t, "iron", inner["gap_1"])
		assert.Equal(t, "coal", inner["gap_2"])
	})

	t.Run("insertion order is preserved", func(t *testing.T) {
		answers := NewAnswerSet()
		answers.Set("9", "last question answered first")
		answers.Set("2", "then this")
		answers.Set("5", "then this")
		// replacing an answer keeps its original slot
		answers.Set("9", "revised")

		entries := BuildUserAnswersPayload(answers)

		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.QuestionID
		}
		assert.Equal(t, []string{"9", "2", "5"}, ids)
		assert.Equal(t, "revised", entries[0].AnswerValue)
	})

	t.Run("empty set yields empty payload", func(t *testing.T) {
		entries := BuildUserAnswersPayload(NewAnswerSet())
		assert.Empty(t, entries)
	})

	t.Run("non-string scalars pass through", func(t *testing.T) {
		answers := NewAnswerSet()
		answers.Set("1", []string{"A", "C"})

		entries := BuildUserAnswersPayload(answers)
		assert.Equal(t, []string{"A", "C"}, entries[0].AnswerValue)
	})
}

func TestNewAnswerSetFromSnapshot(t *testing.T) {
	snapshot := map[string]interface{}{
		"3": "c",
		"1": "a",
		"2": "b",
	}

	set := NewAnswerSetFromSnapshot(snapshot)

	assert.Equal(t, 3, set.Len())
	entries := BuildUserAnswersPayload(set)
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.QuestionID
	}
	// snapshot order is not recoverable; restored sets emit in sorted order
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}
