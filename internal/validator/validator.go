package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/quizforge/quiz-engine/internal/models"
)

// Validator combines struct-tag validation with the question-level
// authoring and submission validators.
type Validator struct {
	structValidator     *validator.Validate
	questionValidator   *QuestionValidator
	submissionValidator *SubmissionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:     structValidator,
		questionValidator:   NewQuestionValidator(),
		submissionValidator: NewSubmissionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs struct-tag validation and converts failures to the
// shared ValidationErrors shape.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// Question returns the authoring validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// Submission returns the submission-completeness validator
func (v *Validator) Submission() *SubmissionValidator {
	return v.submissionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("test_visibility", validateTestVisibility)
	validate.RegisterValidation("test_status", validateTestStatus)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).Valid()
}

func validateTestVisibility(fl validator.FieldLevel) bool {
	switch models.TestVisibility(fl.Field().String()) {
	case models.VisibilityPrivate, models.VisibilityGroup, models.VisibilityPublic:
		return true
	}
	return false
}

func validateTestStatus(fl validator.FieldLevel) bool {
	switch models.TestStatus(fl.Field().String()) {
	case models.TestDraft, models.TestPublished, models.TestArchived:
		return true
	}
	return false
}
