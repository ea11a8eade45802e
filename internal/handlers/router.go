package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-engine/internal/services"
	"github.com/quizforge/quiz-engine/internal/utils"
)

type HandlerManager struct {
	testHandler    *TestHandler
	attemptHandler *AttemptHandler
}

func NewHandlerManager(
	testService services.TestService,
	attemptService services.AttemptService,
	exportService services.ExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		testHandler:    NewTestHandler(testService, exportService, logger),
		attemptHandler: NewAttemptHandler(attemptService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	router.Use(UserIdentity())

	v1 := router.Group("/api/v1")
	{
		// Authoring routes
		tests := v1.Group("/tests")
		{
			tests.POST("", hm.testHandler.CreateTest)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/details", hm.testHandler.GetTestWithDetails)
			tests.PUT("/:id", hm.testHandler.UpdateTest)
			tests.DELETE("/:id", hm.testHandler.DeleteTest)
			tests.POST("/:id/publish", hm.testHandler.PublishTest)
			tests.GET("/:id/stats", hm.testHandler.GetTestStats)

			// Question management
			tests.POST("/:id/questions", hm.testHandler.AddQuestion)
			tests.PUT("/:id/questions/:index", hm.testHandler.UpdateQuestion)
			tests.DELETE("/:id/questions/:index", hm.testHandler.RemoveQuestion)
			tests.PUT("/:id/questions/reorder", hm.testHandler.ReorderQuestions)
			tests.POST("/:id/questions/:index/convert", hm.testHandler.ConvertQuestionType)

			// Word bank blank management
			tests.POST("/:id/questions/:index/blanks", hm.testHandler.InsertBlank)
			tests.DELETE("/:id/questions/:index/blanks/:blank_id", hm.testHandler.RemoveBlank)
			tests.POST("/:id/questions/:index/bank", hm.testHandler.AddBankWord)
			tests.DELETE("/:id/questions/:index/bank", hm.testHandler.RemoveBankWord)
			tests.PUT("/:id/questions/:index/blanks", hm.testHandler.SetBlankAnswer)

			// Matching pair management
			tests.POST("/:id/questions/:index/pairs", hm.testHandler.AddPair)
			tests.DELETE("/:id/questions/:index/pairs/:pair_id", hm.testHandler.RemovePair)

			// Exports
			tests.GET("/:id/export/results", hm.testHandler.ExportResults)
			tests.GET("/:id/export/questions", hm.testHandler.ExportQuestions)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.SaveAnswer)
			attempts.GET("/:id/cloze", hm.attemptHandler.RenderCloze)
			attempts.GET("/:id/matching", hm.attemptHandler.ViewMatching)
			attempts.POST("/:id/matching/click", hm.attemptHandler.ClickMatching)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		}

		// Result routes
		results := v1.Group("/results")
		{
			results.GET("/test/:test_id", hm.attemptHandler.GetResults)
			results.GET("/:id", hm.attemptHandler.GetSubmission)
		}
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UserIdentity copies the upstream gateway's user header into the request
// context. Authentication itself happens at the gateway.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
