package services

import (
	"context"
	"fmt"

	"github.com/quizforge/quiz-engine/internal/cache"
	"github.com/quizforge/quiz-engine/internal/cloze"
	"github.com/quizforge/quiz-engine/internal/matching"
	"github.com/quizforge/quiz-engine/internal/models"
	"github.com/quizforge/quiz-engine/internal/repositories"
	"github.com/quizforge/quiz-engine/internal/utils"
	"github.com/quizforge/quiz-engine/internal/validator"
)

// TestService is the authoring surface: tests are created and mutated here,
// then become read-only for students once published.
type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error)
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error)
	Update(ctx context.Context, id uint, req *UpdateTestRequest) (*models.Test, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error)

	// Publish runs save-time validation and blocks on authoring errors.
	Publish(ctx context.Context, id uint) (*validator.AuthoringReport, error)

	Stats(ctx context.Context, id uint) (*repositories.SubmissionStats, error)

	// Question management
	AddQuestion(ctx context.Context, testID uint, question models.Question) (*models.Test, error)
	UpdateQuestion(ctx context.Context, testID uint, index int, question models.Question) (*models.Test, error)
	RemoveQuestion(ctx context.Context, testID uint, index int) (*models.Test, error)
	ReorderQuestions(ctx context.Context, testID uint, order []int) (*models.Test, error)
	ConvertQuestionType(ctx context.Context, testID uint, index int, newType models.QuestionType) (*models.Test, error)

	// Cloze blank management
	InsertBlank(ctx context.Context, testID uint, index int, position int) (*models.Test, string, error)
	RemoveBlank(ctx context.Context, testID uint, index int, blankID string) (*models.Test, error)
	AddBankWord(ctx context.Context, testID uint, index int, word string) (*models.Test, error)
	RemoveBankWord(ctx context.Context, testID uint, index int, word string) (*models.Test, error)
	SetBlankAnswer(ctx context.Context, testID uint, index int, blankID, word string) (*models.Test, error)

	// Matching pair management
	AddPair(ctx context.Context, testID uint, index int, pair models.MatchPair) (*models.Test, string, error)
	RemovePair(ctx context.Context, testID uint, index int, pairID string) (*models.Test, error)
}

type CreateTestRequest struct {
	Title       string                `json:"title" validate:"required,min=1,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=1000"`
	TimeLimit   *int                  `json:"time_limit" validate:"omitempty,min=1,max=300"`
	Visibility  models.TestVisibility `json:"visibility" validate:"omitempty,test_visibility"`
	Sections    []models.Section      `json:"sections"`
}

type UpdateTestRequest struct {
	Title       *string                `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string                `json:"description" validate:"omitempty,max=1000"`
	TimeLimit   *int                   `json:"time_limit" validate:"omitempty,min=1,max=300"`
	Visibility  *models.TestVisibility `json:"visibility" validate:"omitempty,test_visibility"`
}

type testService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    utils.Logger
	validator *validator.Validator
}

func NewTestService(repo repositories.Repository, cacheService cache.CacheService, logger utils.Logger, v *validator.Validator) TestService {
	return &testService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: v,
	}
}

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error) {
	s.logger.Info("Creating test", "title", req.Title, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test := &models.Test{
		Title:       req.Title,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
		Visibility:  req.Visibility,
		CreatedBy:   creatorID,
		Sections:    req.Sections,
	}
	if test.Visibility == "" {
		test.Visibility = models.VisibilityPrivate
	}

	if err := s.repo.Test().Create(ctx, test); err != nil {
		if repositories.IsDuplicateTitleError(err) {
			return nil, ErrTestDuplicateTitle
		}
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created", "test_id", test.ID)
	return test, nil
}

func (s *testService) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *testService) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *testService) Update(ctx context.Context, id uint, req *UpdateTestRequest) (*models.Test, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if test.Status == models.TestArchived {
		return nil, ErrTestNotEditable
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = req.Description
	}
	if req.TimeLimit != nil {
		test.TimeLimit = req.TimeLimit
	}
	if req.Visibility != nil {
		test.Visibility = *req.Visibility
	}

	if err := s.repo.Test().Update(ctx, test); err != nil {
		if repositories.IsDuplicateTitleError(err) {
			return nil, ErrTestDuplicateTitle
		}
		return nil, fmt.Errorf("failed to update test: %w", err)
	}
	s.invalidate(ctx, id)
	return test, nil
}

func (s *testService) Delete(ctx context.Context, id uint) error {
	hasSubmissions, err := s.repo.Test().HasSubmissions(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check submissions: %w", err)
	}
	if hasSubmissions {
		return ErrTestNotDeletable
	}

	if err := s.repo.Test().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to delete test: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *testService) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	return s.repo.Test().List(ctx, filters)
}

// Publish gates saving behind the authoring validator: errors block, and
// every non-fatal finding (answers missing from the bank, ambiguous
// duplicate rights) is logged rather than silently mis-scored later.
func (s *testService) Publish(ctx context.Context, id uint) (*validator.AuthoringReport, error) {
	test, err := s.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	report := s.validator.Question().ValidateTest(test)
	for _, w := range report.Warnings {
		s.logger.Warn("Authoring inconsistency", "test_id", id, "field", w.Field, "message", w.Message)
	}
	if !report.Valid() {
		return report, &AuthoringError{Errors: report.Errors}
	}

	if err := s.repo.Test().UpdateStatus(ctx, id, models.TestPublished); err != nil {
		return report, fmt.Errorf("failed to publish test: %w", err)
	}
	s.invalidate(ctx, id)

	s.logger.Info("Test published", "test_id", id, "warnings", len(report.Warnings))
	return report, nil
}

func (s *testService) Stats(ctx context.Context, id uint) (*repositories.SubmissionStats, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	stats, err := s.repo.Submission().GetStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission stats: %w", err)
	}
	return stats, nil
}

// ===== QUESTION MANAGEMENT =====

func (s *testService) AddQuestion(ctx context.Context, testID uint, question models.Question) (*models.Test, error) {
	return s.mutateQuestions(ctx, testID, func(questions []models.Question) ([]models.Question, error) {
		if !question.Type.Valid() {
			return nil, ErrQuestionInvalidType
		}
		if question.Points == 0 {
			question.Points = 1
		}
		return append(questions, question), nil
	})
}

func (s *testService) UpdateQuestion(ctx context.Context, testID uint, index int, question models.Question) (*models.Test, error) {
	return s.mutateQuestions(ctx, testID, func(questions []models.Question) ([]models.Question, error) {
		if index < 0 || index >= len(questions) {
			return nil, ErrQuestionNotFound
		}
		question.ID = questions[index].ID
		questions[index] = question
		return questions, nil
	})
}

func (s *testService) RemoveQuestion(ctx context.Context, testID uint, index int) (*models.Test, error) {
	return s.mutateQuestions(ctx, testID, func(questions []models.Question) ([]models.Question, error) {
		if index < 0 || index >= len(questions) {
			return nil, ErrQuestionNotFound
		}
		return append(questions[:index], questions[index+1:]...), nil
	})
}

// ReorderQuestions applies a permutation of current question indices.
func (s *testService) ReorderQuestions(ctx context.Context, testID uint, order []int) (*models.Test, error) {
	return s.mutateQuestions(ctx, testID, func(questions []models.Question) ([]models.Question, error) {
		if len(order) != len(questions) {
			return nil, fmt.Errorf("order has %d entries, want %d", len(order), len(questions))
		}
		seen := make(map[int]bool, len(order))
		reordered := make([]models.Question, len(questions))
		for pos, idx := range order {
			if idx < 0 || idx >= len(questions) || seen[idx] {
				return nil, fmt.Errorf("invalid question order")
			}
			seen[idx] = true
			reordered[pos] = questions[idx]
		}
		return reordered, nil
	})
}

// ConvertQuestionType swaps a question's variant, preserving shared fields
// and discarding content that no longer applies.
func (s *testService) ConvertQuestionType(ctx context.Context, testID uint, index int, newType models.QuestionType) (*models.Test, error) {
	return s.mutateQuestions(ctx, testID, func(questions []models.Question) ([]models.Question, error) {
		if index < 0 || index >= len(questions) {
			return nil, ErrQuestionNotFound
		}
		converted, err := models.ConvertType(questions[index], newType)
		if err != nil {
			return nil, err
		}
		questions[index] = converted
		return questions, nil
	})
}

// ===== CLOZE BLANK MANAGEMENT =====

func (s *testService) InsertBlank(ctx context.Context, testID uint, index int, position int) (*models.Test, string, error) {
	var blankID string
	test, err := s.mutateQuestions(ctx, testID, func(questions []models.Question) ([]models.Question, error) {
		if index < 0 || index >= len(questions) {
			return nil, ErrQuestionNotFound
		}
		updated, id, err := cloze.InsertBlank(questions[index], position)
		if err != nil {
			return nil, err
		}
		blankID = id
		questions[index] = updated
		return questions, nil
	})
	return test, blankID, err
}

func (s *testService) RemoveBlank(ctx context.Context, testID uint, index int, blankID string) (*models.Test, error) {
	return s.mutateQuestion(ctx, testID, index, func(q models.Question) (models.Question, error) {
		return cloze.RemoveBlank(q, blankID)
	})
}

func (s *testService) AddBankWord(ctx context.Context, testID uint, index int, word string) (*models.Test, error) {
	return s.mutateQuestion(ctx, testID, index, func(q models.Question) (models.Question, error) {
		return cloze.AddBankWord(q, word)
	})
}

func (s *testService) RemoveBankWord(ctx context.Context, testID uint, index int, word string) (*models.Test, error) {
	return s.mutateQuestion(ctx, testID, index, func(q models.Question) (models.Question, error) {
		return cloze.RemoveBankWord(q, word)
	})
}

func (s *testService) SetBlankAnswer(ctx context.Context, testID uint, index int, blankID, word string) (*models.Test, error) {
	return s.mutateQuestion(ctx, testID, index, func(q models.Question) (models.Question, error) {
		return cloze.SetBlankAnswer(q, blankID, word)
	})
}

// ===== MATCHING PAIR MANAGEMENT =====

func (s *testService) AddPair(ctx context.Context, testID uint, index int, pair models.MatchPair) (*models.Test, string, error) {
	var pairID string
	test, err := s.mutateQuestion(ctx, testID, index, func(q models.Question) (models.Question, error) {
		updated, id, err := matching.AddPair(q, pair)
		if err != nil {
			return models.Question{}, err
		}
		pairID = id
		return updated, nil
	})
	return test, pairID, err
}

func (s *testService) RemovePair(ctx context.Context, testID uint, index int, pairID string) (*models.Test, error) {
	return s.mutateQuestion(ctx, testID, index, func(q models.Question) (models.Question, error) {
		return matching.RemovePair(q, pairID)
	})
}

// ===== HELPERS =====

func (s *testService) mutateQuestion(ctx context.Context, testID uint, index int, fn func(models.Question) (models.Question, error)) (*models.Test, error) {
	return s.mutateQuestions(ctx, testID, func(questions []models.Question) ([]models.Question, error) {
		if index < 0 || index >= len(questions) {
			return nil, ErrQuestionNotFound
		}
		updated, err := fn(questions[index])
		if err != nil {
			return nil, err
		}
		questions[index] = updated
		return questions, nil
	})
}

func (s *testService) mutateQuestions(ctx context.Context, testID uint, fn func([]models.Question) ([]models.Question, error)) (*models.Test, error) {
	test, err := s.GetByIDWithDetails(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.Status == models.TestArchived {
		return nil, ErrTestNotEditable
	}

	questions, err := fn(test.Questions)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Test().ReplaceQuestions(ctx, testID, questions); err != nil {
		return nil, fmt.Errorf("failed to save questions: %w", err)
	}
	s.invalidate(ctx, testID)

	test.Questions = questions
	test.QuestionsCount = len(questions)
	return test, nil
}

func (s *testService) invalidate(ctx context.Context, testID uint) {
	if err := s.cache.Delete(ctx, cache.TestKey(testID)); err != nil {
		s.logger.Warn("Failed to invalidate test cache", "test_id", testID, "error", err)
	}
}
