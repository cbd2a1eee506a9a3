package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linguaprep/exam-service/internal/models"
)

// Validator wraps struct-tag validation with the domain's custom rules.
type Validator struct {
	structValidator *validator.Validate
}

// New creates the centralized validator instance.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// Validate validates struct tags and converts failures to the shared
// validation error type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if verrs := ToValidationErrors(err); len(verrs) > 0 {
			return verrs
		}
		return err
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("input_kind", validateInputKind)
	validate.RegisterValidation("session_status", validateSessionStatus)
	validate.RegisterValidation("section_skill", validateSectionSkill)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.MultipleChoice,
		models.FillInBlank,
		models.Matching,
		models.MapLabeling,
		models.TrueFalseNotGiven,
		models.YesNoNotGiven,
		models.Summary,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateInputKind(fl validator.FieldLevel) bool {
	validKinds := []models.InputKind{
		models.InputText,
		models.InputDropdown,
		models.InputMCQ,
		models.InputZoneSelect,
	}

	value := fl.Field().String()
	for _, validKind := range validKinds {
		if string(validKind) == value {
			return true
		}
	}
	return false
}

func validateSessionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.SessionStatus{
		models.SessionNotStarted,
		models.SessionInProgress,
		models.SessionSubmitted,
		models.SessionExpired,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validateSectionSkill(fl validator.FieldLevel) bool {
	validSkills := []models.SectionSkill{
		models.SkillListening,
		models.SkillReading,
		models.SkillWriting,
	}

	value := fl.Field().String()
	for _, validSkill := range validSkills {
		if string(validSkill) == value {
			return true
		}
	}
	return false
}
