package services

import (
	"errors"
	"fmt"

	apperrors "github.com/quizforge/quiz-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Test specific errors
	ErrTestNotFound       = errors.New("test not found")
	ErrTestNotEditable    = errors.New("test cannot be edited in current status")
	ErrTestNotDeletable   = errors.New("test cannot be deleted - has existing submissions")
	ErrTestNotPublished   = errors.New("test is not published")
	ErrTestDuplicateTitle = errors.New("test title already exists for this user")

	// Question specific errors
	ErrQuestionNotFound       = errors.New("question not found")
	ErrQuestionInvalidType    = errors.New("invalid question type")
	ErrQuestionInvalidContent = errors.New("invalid question content for type")

	// Attempt specific errors
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptNotOwned         = errors.New("attempt is not owned by this student")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")

	// Submission errors
	ErrSubmissionNotFound = errors.New("submission not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// AuthoringError blocks a save until the author resolves the report.
type AuthoringError struct {
	Errors ValidationErrors `json:"errors"`
}

func (e *AuthoringError) Error() string {
	return fmt.Sprintf("test has %d authoring errors", len(e.Errors))
}

// IncompleteSubmissionError blocks a submit, naming which question numbers
// still need attention (never which are wrong).
type IncompleteSubmissionError struct {
	QuestionNumbers []int `json:"question_numbers"`
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("%d questions are incomplete", len(e.QuestionNumbers))
}
