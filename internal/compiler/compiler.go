package compiler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	apperrors "github.com/linguaprep/exam-service/internal/errors"
	"github.com/linguaprep/exam-service/internal/models"
	"github.com/linguaprep/exam-service/internal/token"
)

// Options carries the grouping and numbering context a form is compiled in.
type Options struct {
	GroupID     uint
	NumberStart int
	NumberEnd   int
}

// compiled is the per-branch output before the shared invariant check.
type compiled struct {
	text string
	key  models.AnswerKey
	meta models.MetadataMap
}

// Compile merges raw author input into a canonical question document. Each
// question type has its own branch producing a {correct_answer, metadata}
// pair keyed by token id; the shared tail enforces that both key sets
// exactly equal the token set discoverable in the final text, and derives
// the question numbering.
func Compile(form QuestionForm, opts Options) (*models.Question, error) {
	var (
		c   compiled
		err error
	)

	switch f := form.(type) {
	case MultipleChoiceForm:
		c, err = compileMultipleChoice(f)
	case FillInForm:
		c, err = compileFillIn(f.Text, f.Answers, f.MaxWords, f.Placeholders)
	case SummaryForm:
		c, err = compileFillIn(f.Text, f.Answers, f.MaxWords, nil)
	case MapLabelingForm:
		c, err = compileMapLabeling(f)
	case MatchingForm:
		c, err = compileMatching(f)
	case TrueFalseForm:
		c, err = compileTrueFalse(f)
	default:
		return nil, fmt.Errorf("unsupported question form %T", form)
	}
	if err != nil {
		return nil, err
	}

	family := token.FamilyFor(form.QuestionType())
	tokens := token.Extract(c.text, family)
	if verr := checkTokenInvariant(tokens, c.key, c.meta); verr != nil {
		return nil, verr
	}

	keyJSON, err := json.Marshal(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answer key: %w", err)
	}
	metaJSON, err := json.Marshal(c.meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	start, end := resolveNumbers(form.QuestionType(), c.text, opts, len(tokens))

	return &models.Question{
		GroupID:       opts.GroupID,
		Type:          form.QuestionType(),
		Text:          c.text,
		NumberStart:   start,
		NumberEnd:     end,
		CorrectAnswer: datatypes.JSON(keyJSON),
		Metadata:      datatypes.JSON(metaJSON),
	}, nil
}

// ===== PER-TYPE BRANCHES =====

func compileMultipleChoice(f MultipleChoiceForm) (compiled, error) {
	text := f.Text

	// Every MCQ question gets exactly one answer slot; append the canonical
	// token when the author wrote none.
	tokens := token.Extract(text, models.FamilyGap)
	if len(tokens) == 0 {
		text = strings.TrimRight(text, " ") + " " + token.Literal(models.FamilyGap, 1)
		tokens = token.Extract(text, models.FamilyGap)
	}
	slot := tokens[0].ID

	letters := make([]string, len(f.Options))
	for i := range f.Options {
		letters[i] = optionLetter(i)
	}

	var selected []string
	for _, idx := range f.SelectedIndexes {
		if idx < 0 || idx >= len(f.Options) {
			return compiled{}, apperrors.NewValidationError("selected_indexes",
				"selected option index out of range", idx)
		}
		selected = append(selected, optionLetter(idx))
	}
	if len(selected) == 0 {
		return compiled{}, apperrors.NewValidationError("selected_indexes",
			"at least one option must be selected", nil)
	}

	isMultiple := len(selected) > 1
	display := f.Display
	if display == "" {
		display = models.InputMCQ
	}
	// A radio control cannot represent a multi-select; the display is forced
	// to dropdown regardless of what the author requested.
	if isMultiple {
		display = models.InputDropdown
	}

	return compiled{
		text: text,
		key:  models.AnswerKey{slot: selected},
		meta: models.MetadataMap{slot: models.TokenMetadata{
			InputKind:        display,
			AvailableOptions: letters,
			IsMultiple:       isMultiple,
		}},
	}, nil
}

func compileFillIn(text string, answers, maxWords, placeholders map[string]string) (compiled, error) {
	key := models.AnswerKey{}
	meta := models.MetadataMap{}

	for _, t := range token.Extract(text, models.FamilyGap) {
		raw, ok := answers[t.ID]
		if !ok {
			continue // surfaces as an invariant violation in the shared check
		}
		key[t.ID] = splitAccepted(raw)

		limit := parseMaxWords(maxWords[t.ID])
		meta[t.ID] = models.TokenMetadata{
			InputKind:        models.InputText,
			MaxWords:         &limit,
			Placeholder:      placeholders[t.ID],
			AvailableOptions: []string{},
		}
	}

	return compiled{text: text, key: key, meta: meta}, nil
}

func compileMapLabeling(f MapLabelingForm) (compiled, error) {
	options := parseZoneOptions(f.OptionsCSV)

	key := models.AnswerKey{}
	meta := models.MetadataMap{}
	for _, t := range token.Extract(f.Text, models.FamilyZone) {
		raw, ok := f.Answers[t.ID]
		if !ok {
			continue
		}
		key[t.ID] = models.AnswerEntry{strings.ToUpper(strings.TrimSpace(raw))}
		meta[t.ID] = models.TokenMetadata{
			InputKind:        models.InputZoneSelect,
			AvailableOptions: options,
		}
	}

	return compiled{text: f.Text, key: key, meta: meta}, nil
}

func compileMatching(f MatchingForm) (compiled, error) {
	key := models.AnswerKey{}
	meta := models.MetadataMap{}
	for _, t := range token.Extract(f.Text, models.FamilyGap) {
		label, ok := f.Answers[t.ID]
		if !ok {
			continue
		}
		key[t.ID] = models.AnswerEntry{labelLetter(label)}
		meta[t.ID] = models.TokenMetadata{
			InputKind:        models.InputDropdown,
			AvailableOptions: f.Labels,
			AllowReuse:       f.AllowReuse,
		}
	}

	return compiled{text: f.Text, key: key, meta: meta}, nil
}

func compileTrueFalse(f TrueFalseForm) (compiled, error) {
	vocab := []string{"TRUE", "FALSE", "NOT GIVEN"}
	if f.Variant == models.YesNoNotGiven {
		vocab = []string{"YES", "NO", "NOT GIVEN"}
	} else if f.Variant != models.TrueFalseNotGiven {
		return compiled{}, apperrors.NewValidationError("variant",
			"must be true_false_not_given or yes_no_not_given", f.Variant)
	}

	answer := strings.ToUpper(strings.TrimSpace(f.Answer))
	if !contains(vocab, answer) {
		return compiled{}, apperrors.NewValidationError("answer",
			fmt.Sprintf("must be one of: %s", strings.Join(vocab, ", ")), f.Answer)
	}

	text := f.Text
	tokens := token.Extract(text, models.FamilyGap)
	if len(tokens) == 0 {
		text = strings.TrimRight(text, " ") + " " + token.Literal(models.FamilyGap, 1)
		tokens = token.Extract(text, models.FamilyGap)
	}
	slot := tokens[0].ID

	return compiled{
		text: text,
		key:  models.AnswerKey{slot: models.AnswerEntry{answer}},
		meta: models.MetadataMap{slot: models.TokenMetadata{
			InputKind:        models.InputDropdown,
			AvailableOptions: vocab,
		}},
	}, nil
}

// ===== SHARED INVARIANT =====

// checkTokenInvariant rejects compilation when the answer-key or metadata
// key set differs from the token set in the final text. This is the single
// enforcement point for the cross-entity invariant; it blocks persistence
// and is surfaced to the author as a recoverable validation failure.
func checkTokenInvariant(tokens []models.Token, key models.AnswerKey, meta models.MetadataMap) error {
	inText := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		inText[t.ID] = true
	}

	var verrs apperrors.ValidationErrors
	for _, t := range tokens {
		if _, ok := key[t.ID]; !ok {
			verrs = append(verrs, *apperrors.NewValidationError("correct_answer",
				"missing answer for token", t.ID))
		}
		if _, ok := meta[t.ID]; !ok {
			verrs = append(verrs, *apperrors.NewValidationError("metadata",
				"missing metadata for token", t.ID))
		}
	}
	for _, id := range sortedKeys(key) {
		if !inText[id] {
			verrs = append(verrs, *apperrors.NewValidationError("correct_answer",
				"answer references a token not present in text", id))
		}
	}
	for id := range meta {
		if !inText[id] {
			verrs = append(verrs, *apperrors.NewValidationError("metadata",
				"metadata references a token not present in text", id))
		}
	}

	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

// ===== HELPERS =====

func optionLetter(i int) string {
	return string(rune('A' + i))
}

// splitAccepted turns the author's comma-separated input into the accepted
// value set, trimming each part.
func splitAccepted(raw string) models.AnswerEntry {
	parts := strings.Split(raw, ",")
	entry := make(models.AnswerEntry, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			entry = append(entry, p)
		}
	}
	return entry
}

func parseMaxWords(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return models.DefaultMaxWords
	}
	return n
}

// parseZoneOptions parses the author's comma-separated zone labels,
// defaulting to the eight zones A..H.
func parseZoneOptions(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		options := make([]string, 8)
		for i := range options {
			options[i] = optionLetter(i)
		}
		return options
	}

	var options []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			options = append(options, p)
		}
	}
	return options
}

// labelLetter splits the leading letter off a matching label,
// "C. Some heading" -> "C".
func labelLetter(label string) string {
	label = strings.TrimSpace(label)
	if i := strings.IndexAny(label, ". "); i > 0 {
		label = label[:i]
	}
	return strings.ToUpper(strings.TrimSpace(label))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortedKeys(key models.AnswerKey) []string {
	ids := make([]string, 0, len(key))
	for id := range key {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
