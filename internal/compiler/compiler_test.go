package compiler

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/linguaprep/exam-service/internal/errors"
	"github.com/linguaprep/exam-service/internal/models"
)

func decodeKey(t *testing.T, q *models.Question) models.AnswerKey {
	t.Helper()
	var key models.AnswerKey
	require.NoError(t, json.Unmarshal(q.CorrectAnswer, &key))
	return key
}

func decodeMeta(t *testing.T, q *models.Question) models.MetadataMap {
	t.Helper()
	var meta models.MetadataMap
	require.NoError(t, json.Unmarshal(q.Metadata, &meta))
	return meta
}

func TestCompile_MultipleChoice(t *testing.T) {
	t.Run("single select keeps mcq display", func(t *testing.T) {
		q, err := Compile(MultipleChoiceForm{
			Text:            "What powered the first mills? {{gap_1}}",
			Options:         []string{"Wind", "Water", "Steam"},
			SelectedIndexes: []int{1},
		}, Options{GroupID: 3, NumberStart: 4})
		require.NoError(t, err)

		assert.Equal(t, models.MultipleChoice, q.Type)
		assert.Equal(t, uint(3), q.GroupID)
		assert.Equal(t, 4, q.NumberStart)
		assert.Equal(t, 4, q.NumberEnd)

		key := decodeKey(t, q)
		assert.Equal(t, models.AnswerEntry{"B"}, key["gap_1"])

		meta := decodeMeta(t, q)
		assert.Equal(t, models.InputMCQ, meta["gap_1"].InputKind)
		assert.Equal(t, []string{"A", "B", "C"}, meta["gap_1"].AvailableOptions)
		assert.False(t, meta["gap_1"].IsMultiple)
	})

	t.Run("multi select forces dropdown regardless of requested display", func(t *testing.T) {
		q, err := Compile(MultipleChoiceForm{
			Text:            "Which TWO factors apply? {{gap_1}}",
			Options:         []string{"A opt", "B opt", "C opt", "D opt"},
			SelectedIndexes: []int{0, 3},
			Display:         models.InputMCQ,
		}, Options{})
		require.NoError(t, err)

		key := decodeKey(t, q)
		assert.Equal(t, models.AnswerEntry{"A", "D"}, key["gap_1"])

		meta := decodeMeta(t, q)
		assert.Equal(t, models.InputDropdown, meta["gap_1"].InputKind)
		assert.True(t, meta["gap_1"].IsMultiple)
	})

	t.Run("token appended when author wrote none", func(t *testing.T) {
		q, err := Compile(MultipleChoiceForm{
			Text:            "Pick one",
			Options:         []string{"X", "Y"},
			SelectedIndexes: []int{0},
		}, Options{})
		require.NoError(t, err)

		assert.Equal(t, "Pick one {{gap_1}}", q.Text)
	})

	t.Run("selected index out of range", func(t *testing.T) {
		_, err := Compile(MultipleChoiceForm{
			Text:            "Pick {{gap_1}}",
			Options:         []string{"X", "Y"},
			SelectedIndexes: []int{5},
		}, Options{})
		assert.Error(t, err)
	})

	t.Run("no selection", func(t *testing.T) {
		_, err := Compile(MultipleChoiceForm{
			Text:    "Pick {{gap_1}}",
			Options: []string{"X", "Y"},
		}, Options{})
		assert.Error(t, err)
	})
}

func TestCompile_FillIn(t *testing.T) {
	q, err := Compile(FillInForm{
		Text: "The {{gap_1}} was stored in the {{gap_2}}.",
		Answers: map[string]string{
			"gap_1": "coal, charcoal",
			"gap_2": "cellar",
		},
		MaxWords:     map[string]string{"gap_1": "3"},
		Placeholders: map[string]string{"gap_2": "a place"},
	}, Options{NumberStart: 7})
	require.NoError(t, err)

	assert.Equal(t, 7, q.NumberStart)
	assert.Equal(t, 8, q.NumberEnd, "two blanks span two displayed numbers")

	key := decodeKey(t, q)
	assert.Equal(t, models.AnswerEntry{"coal", "charcoal"}, key["gap_1"])
	assert.Equal(t, models.AnswerEntry{"cellar"}, key["gap_2"])

	meta := decodeMeta(t, q)
	assert.Equal(t, 3, *meta["gap_1"].MaxWords)
	assert.Equal(t, models.DefaultMaxWords, *meta["gap_2"].MaxWords)
	assert.Equal(t, "a place", meta["gap_2"].Placeholder)
	assert.Equal(t, models.InputText, meta["gap_1"].InputKind)
}

func TestCompile_Summary(t *testing.T) {
	t.Run("leading numeral supplies numbering", func(t *testing.T) {
		q, err := Compile(SummaryForm{
			Text:    "14. The miners relied on {{gap_1}} and {{gap_2}}.",
			Answers: map[string]string{"gap_1": "candles", "gap_2": "canaries"},
		}, Options{})
		require.NoError(t, err)

		assert.Equal(t, models.Summary, q.Type)
		assert.Equal(t, 14, q.NumberStart)
		assert.Equal(t, 15, q.NumberEnd)
	})

	t.Run("explicit start wins over leading numeral", func(t *testing.T) {
		q, err := Compile(SummaryForm{
			Text:    "14. Uses {{gap_1}}.",
			Answers: map[string]string{"gap_1": "x"},
		}, Options{NumberStart: 20})
		require.NoError(t, err)

		assert.Equal(t, 20, q.NumberStart)
		assert.Equal(t, 20, q.NumberEnd)
	})
}

func TestCompile_MapLabeling(t *testing.T) {
	q, err := Compile(MapLabelingForm{
		Text: "Reception {{zone_1}}, Storage {{zone_2}}",
		Answers: map[string]string{
			"zone_1": " b ",
			"zone_2": "F",
		},
	}, Options{NumberStart: 11})
	require.NoError(t, err)

	key := decodeKey(t, q)
	assert.Equal(t, models.AnswerEntry{"B"}, key["zone_1"], "answers are upper-cased and trimmed")
	assert.Equal(t, models.AnswerEntry{"F"}, key["zone_2"])

	meta := decodeMeta(t, q)
	assert.Equal(t, models.InputZoneSelect, meta["zone_1"].InputKind)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H"}, meta["zone_1"].AvailableOptions)
	assert.Equal(t, 11, q.NumberStart)
	assert.Equal(t, 12, q.NumberEnd)
}

func TestCompile_MapLabeling_CustomOptions(t *testing.T) {
	q, err := Compile(MapLabelingForm{
		Text:       "Entrance {{zone_1}}",
		Answers:    map[string]string{"zone_1": "y"},
		OptionsCSV: "x, y, z",
	}, Options{})
	require.NoError(t, err)

	meta := decodeMeta(t, q)
	assert.Equal(t, []string{"X", "Y", "Z"}, meta["zone_1"].AvailableOptions)
}

func TestCompile_Matching(t *testing.T) {
	labels := []string{"A. Origins", "B. Decline", "C. Revival"}
	q, err := Compile(MatchingForm{
		Text:       "Paragraph one {{gap_1}}, paragraph two {{gap_2}}",
		Answers:    map[string]string{"gap_1": "C. Revival", "gap_2": "A. Origins"},
		Labels:     labels,
		AllowReuse: true,
	}, Options{})
	require.NoError(t, err)

	key := decodeKey(t, q)
	assert.Equal(t, models.AnswerEntry{"C"}, key["gap_1"], "only the leading letter is stored")
	assert.Equal(t, models.AnswerEntry{"A"}, key["gap_2"])

	meta := decodeMeta(t, q)
	assert.Equal(t, models.InputDropdown, meta["gap_1"].InputKind)
	assert.Equal(t, labels, meta["gap_1"].AvailableOptions)
	assert.True(t, meta["gap_1"].AllowReuse)
}

func TestCompile_TrueFalse(t *testing.T) {
	t.Run("tfng vocabulary", func(t *testing.T) {
		q, err := Compile(TrueFalseForm{
			Text:    "The canal opened in 1761. {{gap_1}}",
			Variant: models.TrueFalseNotGiven,
			Answer:  "not given",
		}, Options{})
		require.NoError(t, err)

		key := decodeKey(t, q)
		assert.Equal(t, models.AnswerEntry{"NOT GIVEN"}, key["gap_1"])

		meta := decodeMeta(t, q)
		assert.Equal(t, []string{"TRUE", "FALSE", "NOT GIVEN"}, meta["gap_1"].AvailableOptions)
		assert.Equal(t, models.InputDropdown, meta["gap_1"].InputKind)
	})

	t.Run("ynng vocabulary rejects tfng answer", func(t *testing.T) {
		_, err := Compile(TrueFalseForm{
			Text:    "The author approves. {{gap_1}}",
			Variant: models.YesNoNotGiven,
			Answer:  "TRUE",
		}, Options{})
		assert.Error(t, err)
	})

	t.Run("ynng accepts yes", func(t *testing.T) {
		q, err := Compile(TrueFalseForm{
			Text:    "The author approves.",
			Variant: models.YesNoNotGiven,
			Answer:  "yes",
		}, Options{})
		require.NoError(t, err)

		assert.Equal(t, models.YesNoNotGiven, q.Type)
		assert.Contains(t, q.Text, "{{gap_1}}", "token appended when missing")
	})
}

func TestCompile_TokenInvariant(t *testing.T) {
	t.Run("missing answer for a token in text", func(t *testing.T) {
		_, err := Compile(FillInForm{
			Text:    "{{gap_1}} and {{gap_2}}",
			Answers: map[string]string{"gap_1": "only one"},
		}, Options{})

		var verrs apperrors.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.NotEmpty(t, verrs)
	})

	t.Run("stale answer input never reaches the stored key", func(t *testing.T) {
		// gap_9 no longer appears in the text; the compiled key must hold
		// exactly the tokens the text holds
		q, err := Compile(FillInForm{
			Text:    "{{gap_1}}",
			Answers: map[string]string{"gap_1": "a", "gap_9": "stale"},
		}, Options{})
		require.NoError(t, err)

		key := decodeKey(t, q)
		assert.Len(t, key, 1)
		assert.NotContains(t, key, "gap_9")
	})

	t.Run("compile is deterministic for identical input", func(t *testing.T) {
		form := FillInForm{
			Text:    "{{gap_1}} then {{gap_2}}",
			Answers: map[string]string{"gap_1": "a", "gap_2": "b"},
		}

		q1, err1 := Compile(form, Options{NumberStart: 3})
		q2, err2 := Compile(form, Options{NumberStart: 3})
		require.NoError(t, err1)
		require.NoError(t, err2)

		assert.Equal(t, q1.Text, q2.Text)
		assert.Equal(t, decodeKey(t, q1), decodeKey(t, q2))
		assert.Equal(t, decodeMeta(t, q1), decodeMeta(t, q2))
	})
}

func TestCompile_RoundTripInvariant(t *testing.T) {
	// compile, re-extract from the stored text, and check both key sets
	// still exactly match the token set
	q, err := Compile(FillInForm{
		Text:    "A {{gap_1}}, B {{gap_2}}, C {{gap_3}}",
		Answers: map[string]string{"gap_1": "a", "gap_2": "b", "gap_3": "c"},
	}, Options{})
	require.NoError(t, err)

	key := decodeKey(t, q)
	meta := decodeMeta(t, q)
	assert.Len(t, key, 3)
	assert.Len(t, meta, 3)
	for _, id := range []string{"gap_1", "gap_2", "gap_3"} {
		assert.Contains(t, key, id)
		assert.Contains(t, meta, id)
	}
}

func TestResolveNumbers(t *testing.T) {
	tests := []struct {
		name       string
		qt         models.QuestionType
		text       string
		opts       Options
		tokenCount int
		wantStart  int
		wantEnd    int
	}{
		{"explicit range", models.FillInBlank, "x", Options{NumberStart: 5, NumberEnd: 8}, 4, 5, 8},
		{"end derived from token count", models.FillInBlank, "x", Options{NumberStart: 5}, 3, 5, 7},
		{"single token collapses to start", models.FillInBlank, "x", Options{NumberStart: 5}, 1, 5, 5},
		{"defaults to one", models.FillInBlank, "x", Options{}, 1, 1, 1},
		{"summary leading numeral", models.Summary, "23. prose", Options{}, 2, 23, 24},
		{"non-summary ignores leading numeral", models.FillInBlank, "23. prose", Options{}, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := resolveNumbers(tt.qt, tt.text, tt.opts, tt.tokenCount)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestLabelLetter(t *testing.T) {
	assert.Equal(t, "C", labelLetter("C. Some heading"))
	assert.Equal(t, "B", labelLetter("B Decline of the mills"))
	assert.Equal(t, "A", labelLetter("a"))
	assert.Equal(t, "VII", labelLetter("vii. Roman numbering"))
}
