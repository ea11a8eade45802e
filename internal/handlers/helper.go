package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-engine/internal/services"
)

// handleServiceError maps service layer errors onto HTTP responses. Custom
// error types carry structured details; sentinel errors map to a status.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var authoringError *services.AuthoringError
	if errors.As(err, &authoringError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Test has authoring errors",
			Details: authoringError.Errors,
			Code:    "authoring_errors",
		})
		return
	}

	var incompleteError *services.IncompleteSubmissionError
	if errors.As(err, &incompleteError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Submission is incomplete",
			Details: map[string]interface{}{
				"question_numbers": incompleteError.QuestionNumbers,
			},
			Code: "incomplete_submission",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrTestNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrAttemptNotOwned):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrTestNotEditable),
		errors.Is(err, services.ErrTestNotDeletable),
		errors.Is(err, services.ErrTestNotPublished),
		errors.Is(err, services.ErrAttemptAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrTestDuplicateTitle):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error(), Code: "duplicate_title"})

	case errors.Is(err, services.ErrQuestionInvalidType),
		errors.Is(err, services.ErrQuestionInvalidContent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})

	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
