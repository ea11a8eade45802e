package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-engine/internal/models"
	"github.com/quizforge/quiz-engine/internal/repositories"
	"github.com/quizforge/quiz-engine/internal/services"
	"github.com/quizforge/quiz-engine/internal/utils"
)

// TestHandler exposes the authoring surface: test CRUD, question
// management, word bank blank editing and exports.
type TestHandler struct {
	BaseHandler
	testService   services.TestService
	exportService services.ExportService
}

func NewTestHandler(testService services.TestService, exportService services.ExportService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler:   NewBaseHandler(logger),
		testService:   testService,
		exportService: exportService,
	}
}

// ===== TEST CRUD =====

func (h *TestHandler) CreateTest(c *gin.Context) {
	var req services.CreateTestRequest
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

	test, err := h.testService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (h *TestHandler) GetTestWithDetails(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByIDWithDetails(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (h *TestHandler) UpdateTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Test deleted"})
}

func (h *TestHandler) ListTests(c *gin.Context) {
	filters := repositories.TestFilters{
		Limit:     h.parseIntQuery(c, "limit", 20),
		Offset:    h.parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.TestStatus(status)
		filters.Status = &s
	}
	if visibility := c.Query("visibility"); visibility != "" {
		v := models.TestVisibility(visibility)
		filters.Visibility = &v
	}
	if creator := c.Query("created_by"); creator != "" {
		filters.CreatedBy = &creator
	}

	tests, total, err := h.testService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tests":  tests,
		"total":  total,
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

func (h *TestHandler) PublishTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Publishing test", "test_id", id)

	report, err := h.testService.Publish(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test published",
		Data:    report,
	})
}

func (h *TestHandler) GetTestStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	stats, err := h.testService.Stats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ===== QUESTION MANAGEMENT =====

func (h *TestHandler) AddQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.AddQuestion(c.Request.Context(), id, question)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, test)
}

func (h *TestHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}

	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.UpdateQuestion(c.Request.Context(), id, index, question)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (h *TestHandler) RemoveQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}

	test, err := h.testService.RemoveQuestion(c.Request.Context(), id, index)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

type reorderRequest struct {
	Order []int `json:"order" validate:"required,min=1"`
}

func (h *TestHandler) ReorderQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.ReorderQuestions(c.Request.Context(), id, req.Order)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

type convertTypeRequest struct {
	Type models.QuestionType `json:"type" validate:"required,question_type"`
}

func (h *TestHandler) ConvertQuestionType(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}

	var req convertTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.ConvertQuestionType(c.Request.Context(), id, index, req.Type)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// ===== WORD BANK BLANK MANAGEMENT =====

type insertBlankRequest struct {
	Position int `json:"position" validate:"min=0"`
}

func (h *TestHandler) InsertBlank(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}

	var req insertBlankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, blankID, err := h.testService.InsertBlank(c.Request.Context(), id, index, req.Position)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"blank_id": blankID,
		"test":     test,
	})
}

func (h *TestHandler) RemoveBlank(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}
	blankID := c.Param("blank_id")

	test, err := h.testService.RemoveBlank(c.Request.Context(), id, index, blankID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

type bankWordRequest struct {
	Word string `json:"word" validate:"required"`
}

func (h *TestHandler) AddBankWord(c *gin.Context) {
	h.bankWordOp(c, h.testService.AddBankWord)
}

func (h *TestHandler) RemoveBankWord(c *gin.Context) {
	h.bankWordOp(c, h.testService.RemoveBankWord)
}

type blankAnswerRequest struct {
	BlankID string `json:"blank_id" validate:"required"`
	Word    string `json:"word" validate:"required"`
}

func (h *TestHandler) SetBlankAnswer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}

	var req blankAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.SetBlankAnswer(c.Request.Context(), id, index, req.BlankID, req.Word)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// ===== MATCHING PAIR MANAGEMENT =====

type addPairRequest struct {
	Left       string  `json:"left" validate:"required"`
	Right      string  `json:"right" validate:"required"`
	LeftImage  *string `json:"left_image"`
	RightImage *string `json:"right_image"`
}

func (h *TestHandler) AddPair(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}

	var req addPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, pairID, err := h.testService.AddPair(c.Request.Context(), id, index, models.MatchPair{
		Left:       req.Left,
		Right:      req.Right,
		LeftImage:  req.LeftImage,
		RightImage: req.RightImage,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"pair_id": pairID,
		"test":    test,
	})
}

func (h *TestHandler) RemovePair(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}
	pairID := c.Param("pair_id")

	test, err := h.testService.RemovePair(c.Request.Context(), id, index, pairID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// ===== EXPORTS =====

func (h *TestHandler) ExportResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting results", "test_id", id)

	data, err := h.exportService.ExportResults(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=test_%d_results.xlsx", id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *TestHandler) ExportQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	switch format {
	case "csv":
		data, err := h.exportService.ExportQuestionsToCSV(c.Request.Context(), id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=test_%d_questions.csv", id))
		c.Data(http.StatusOK, "text/csv", data)

	case "xlsx":
		data, err := h.exportService.ExportQuestionsToExcel(c.Request.Context(), id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=test_%d_questions.xlsx", id))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported export format",
			Details: format,
		})
	}
}

// ===== HELPERS =====

func (h *TestHandler) parseQuestionIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question index",
			Details: "must be a non-negative integer",
		})
		return 0, false
	}
	return idx, true
}

func (h *TestHandler) bankWordOp(c *gin.Context, op func(context.Context, uint, int, string) (*models.Test, error)) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	index, ok := h.parseQuestionIndex(c)
	if !ok {
		return
	}

	var req bankWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := op(c.Request.Context(), id, index, req.Word)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}
