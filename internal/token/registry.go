package token

import "github.com/linguaprep/exam-service/internal/models"

// EnsureDefaults returns a metadata map covering every given token. Tokens
// already present keep their entries untouched; newly discovered tokens get
// the default configuration (free text, two-word limit, no options).
// The input map is not mutated.
func EnsureDefaults(tokens []models.Token, existing models.MetadataMap) models.MetadataMap {
	out := make(models.MetadataMap, len(tokens))
	for _, t := range tokens {
		if meta, ok := existing[t.ID]; ok {
			out[t.ID] = meta
			continue
		}
		maxWords := models.DefaultMaxWords
		out[t.ID] = models.TokenMetadata{
			InputKind:        models.InputText,
			MaxWords:         &maxWords,
			AvailableOptions: []string{},
		}
	}
	return out
}

// Prune drops metadata and answer-key entries whose token no longer exists
// in the text. Orphans accumulate when an author deletes a token literal;
// they must be removed before compilation so the key sets stay equal to the
// token set. Inputs are not mutated.
func Prune(tokens []models.Token, meta models.MetadataMap, answers models.AnswerKey) (models.MetadataMap, models.AnswerKey) {
	alive := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		alive[t.ID] = true
	}

	prunedMeta := make(models.MetadataMap, len(tokens))
	for id, m := range meta {
		if alive[id] {
			prunedMeta[id] = m
		}
	}

	prunedAnswers := make(models.AnswerKey, len(tokens))
	for id, a := range answers {
		if alive[id] {
			prunedAnswers[id] = a
		}
	}

	return prunedMeta, prunedAnswers
}
