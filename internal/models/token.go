package models

// TokenFamily is the namespace a placeholder token belongs to. Gap tokens
// mark text blanks, zone tokens mark selectable areas on a map or diagram.
type TokenFamily string

const (
	FamilyGap  TokenFamily = "gap"
	FamilyZone TokenFamily = "zone"
	FamilyTFNG TokenFamily = "tfng"
)

// Token identifies one fillable unit inside a body of text.
// ID has the form "<family>_<n>", unique within one text body.
type Token struct {
	ID     string      `json:"id"`
	Family TokenFamily `json:"family"`
	Number int         `json:"number"`
}

// InputKind selects the control a token is answered with.
type InputKind string

const (
	InputText       InputKind = "text_input"
	InputDropdown   InputKind = "dropdown"
	InputMCQ        InputKind = "mcq"
	InputZoneSelect InputKind = "zone_select"
)

// DefaultMaxWords applies to free-text tokens without an explicit limit.
const DefaultMaxWords = 2

// TokenMetadata is the per-token configuration produced at authoring time
// and consulted again at grading time.
type TokenMetadata struct {
	InputKind        InputKind `json:"input_kind"`
	MaxWords         *int      `json:"max_words,omitempty"`
	Placeholder      string    `json:"placeholder,omitempty"`
	AvailableOptions []string  `json:"available_options"`
	IsMultiple       bool      `json:"is_multiple"`
	AllowReuse       bool      `json:"allow_reuse,omitempty"`
}

// AnswerEntry is the set of accepted values for one token. Acceptance is
// case-insensitive, whitespace-trimmed equality against any member.
type AnswerEntry []string

// AnswerKey maps token id -> accepted values for one question.
type AnswerKey map[string]AnswerEntry

// MetadataMap maps token id -> per-token configuration for one question.
type MetadataMap map[string]TokenMetadata
