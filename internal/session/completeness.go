package session

import (
	"strconv"
	"strings"

	"github.com/linguaprep/exam-service/internal/models"
)

// QuestionRef is the minimal question view the completeness engine needs:
// the id answers are keyed by, and the number range that marks a grouped
// question.
type QuestionRef struct {
	ID          string
	NumberStart int
	NumberEnd   int
}

func (r QuestionRef) grouped() bool {
	return r.NumberEnd > r.NumberStart
}

// RefsFromQuestions projects persisted questions onto QuestionRefs.
func RefsFromQuestions(questions []*models.Question) []QuestionRef {
	refs := make([]QuestionRef, len(questions))
	for i, q := range questions {
		refs[i] = QuestionRef{
			ID:          strconv.FormatUint(uint64(q.ID), 10),
			NumberStart: q.NumberStart,
			NumberEnd:   q.NumberEnd,
		}
	}
	return refs
}

// CountAnswered computes how many questions hold a non-empty answer. For a
// grouped question whose answer carries a "values" map, each non-empty
// sub-answer counts individually; an ungrouped question counts once when any
// field of its answer is non-empty. Malformed or missing entries contribute
// zero. The inputs are never mutated, so this is safe to call on every tick
// or render to drive progress indicators.
func CountAnswered(answers *AnswerSet, questions []QuestionRef) int {
	if answers == nil {
		return 0
	}

	count := 0
	for _, q := range questions {
		value, ok := answers.Get(q.ID)
		if !ok || value == nil {
			continue
		}

		if q.grouped() {
			if sub, ok := groupValues(value); ok {
				for _, v := range sub {
					if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
						count++
					}
				}
				continue
			}
		}

		if nonEmpty(value) {
			count++
		}
	}
	return count
}

func groupValues(value interface{}) (map[string]interface{}, bool) {
	wrapper, ok := value.(map[string]interface{})
	if !ok {
		return nil, false
	}
	inner, ok := wrapper["values"].(map[string]interface{})
	return inner, ok
}

// nonEmpty is the recursive emptiness test: a non-blank string, a non-empty
// array, or an object with at least one non-empty member.
func nonEmpty(value interface{}) bool {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case []interface{}:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case map[string]interface{}:
		for _, member := range v {
			if nonEmpty(member) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
