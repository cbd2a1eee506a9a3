package compiler

import (
	"regexp"
	"strconv"

	"github.com/linguaprep/exam-service/internal/models"
)

// Summary-completion content is typically pasted as pre-numbered prose, so
// a question without explicit numbering may borrow the leading numeral of
// its own text ("14. The miners ..." -> 14).
var leadingNumber = regexp.MustCompile(`^\s*(\d+)[.)]\s`)

// resolveNumbers derives question_number_start/end. An explicit start wins;
// summary questions fall back to a leading numeral in the text. The end
// defaults to start + tokenCount - 1 so multi-blank prompts span one
// displayed number per blank.
func resolveNumbers(qt models.QuestionType, text string, opts Options, tokenCount int) (int, int) {
	start := opts.NumberStart
	if start < 1 && qt == models.Summary {
		if m := leadingNumber.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				start = n
			}
		}
	}
	if start < 1 {
		start = 1
	}

	end := opts.NumberEnd
	if end < start {
		if tokenCount > 1 {
			end = start + tokenCount - 1
		} else {
			end = start
		}
	}

	return start, end
}
