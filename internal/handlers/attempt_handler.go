package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-engine/internal/matching"
	"github.com/quizforge/quiz-engine/internal/services"
	"github.com/quizforge/quiz-engine/internal/utils"
)

// AttemptHandler exposes the student surface: starting attempts, answer
// capture, per-question interaction and submission.
type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

type startAttemptRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req startAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Starting attempt", "test_id", req.TestID)

	attempt, err := h.attemptService.Start(c.Request.Context(), req.TestID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := c.Param("id")
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

type saveAnswerRequest struct {
	QuestionIndex int             `json:"question_index" validate:"min=0"`
	Answer        json.RawMessage `json:"answer" validate:"required"`
}

func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	attemptID := c.Param("id")
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	var req saveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), attemptID, userID, req.QuestionIndex, req.Answer); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer saved"})
}

func (h *AttemptHandler) RenderCloze(c *gin.Context) {
	attemptID := c.Param("id")
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	index := h.parseIntQuery(c, "question", -1)
	if index < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question index",
			Details: "question query parameter is required",
		})
		return
	}

	tokens, err := h.attemptService.RenderCloze(c.Request.Context(), attemptID, userID, index)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func (h *AttemptHandler) ViewMatching(c *gin.Context) {
	attemptID := c.Param("id")
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	index := h.parseIntQuery(c, "question", -1)
	if index < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question index",
			Details: "question query parameter is required",
		})
		return
	}

	view, err := h.attemptService.ViewMatching(c.Request.Context(), attemptID, userID, index)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type matchingClickRequest struct {
	QuestionIndex int    `json:"question_index" validate:"min=0"`
	Side          string `json:"side" validate:"required,oneof=left right"`
	Value         string `json:"value" validate:"required"`
}

func (h *AttemptHandler) ClickMatching(c *gin.Context) {
	attemptID := c.Param("id")
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	var req matchingClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.attemptService.ClickMatching(
		c.Request.Context(), attemptID, userID, req.QuestionIndex, matching.Side(req.Side), req.Value)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := c.Param("id")
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID)

	submission, err := h.attemptService.Submit(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submission)
}

func (h *AttemptHandler) GetResults(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	submissions, err := h.attemptService.GetResults(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

func (h *AttemptHandler) GetSubmission(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	submission, err := h.attemptService.GetSubmission(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}
