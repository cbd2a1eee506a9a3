package token

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/linguaprep/exam-service/internal/models"
)

// Placeholder tokens are embedded in prompt text as {{gap_3}} or {{zone_1}}.
// The number is a positive decimal with no leading zeros and no whitespace
// inside the braces. Anything that does not match exactly is inert text,
// never an error.
var tokenPattern = regexp.MustCompile(`\{\{(gap|zone|tfng)_([1-9][0-9]*)\}\}`)

// Literal renders the wire form of a token.
func Literal(family models.TokenFamily, number int) string {
	return fmt.Sprintf("{{%s_%d}}", family, number)
}

// Extract returns the tokens of one family found in text, in order of first
// appearance. Repeated occurrences of the same id refer to the same blank
// and collapse to one logical token. Extraction is a pure function of the
// text; calling it twice on unchanged text yields identical results.
func Extract(text string, family models.TokenFamily) []models.Token {
	var tokens []models.Token
	seen := make(map[string]bool)

	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		if models.TokenFamily(m[1]) != family {
			continue
		}
		id := m[1] + "_" + m[2]
		if seen[id] {
			continue
		}
		seen[id] = true

		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue // unreachable given the pattern, but never propagate
		}
		tokens = append(tokens, models.Token{
			ID:     id,
			Family: family,
			Number: n,
		})
	}

	return tokens
}

// ExtractIDs is Extract reduced to the ordered id list.
func ExtractIDs(text string, family models.TokenFamily) []string {
	tokens := Extract(text, family)
	ids := make([]string, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids
}

// NextNumber allocates the number for a new token of the given family:
// strictly greater than every number already present in text. Deleting an
// interior token leaves a numbering gap; gaps are tolerated and numbers are
// never reused or compacted.
func NextNumber(text string, family models.TokenFamily) int {
	max := 0
	for _, t := range Extract(text, family) {
		if t.Number > max {
			max = t.Number
		}
	}
	return max + 1
}

// InsertAt splices a freshly numbered token literal into text at the given
// byte offset and returns the new text together with the cursor position
// immediately after the inserted literal. Numbering is derived by re-scanning
// the current text, so repeated insertions never collide even across edits.
func InsertAt(text string, cursor int, family models.TokenFamily) (string, int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}

	literal := Literal(family, NextNumber(text, family))
	updated := text[:cursor] + literal + text[cursor:]
	return updated, cursor + len(literal)
}

// FamilyFor selects the token namespace for an authoring context:
// zone tokens for map/diagram labeling, gap tokens for everything else.
func FamilyFor(questionType models.QuestionType) models.TokenFamily {
	if questionType == models.MapLabeling {
		return models.FamilyZone
	}
	return models.FamilyGap
}
