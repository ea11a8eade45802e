package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/quizforge/quiz-engine/internal/cache"
	"github.com/quizforge/quiz-engine/internal/cloze"
	"github.com/quizforge/quiz-engine/internal/events"
	"github.com/quizforge/quiz-engine/internal/matching"
	"github.com/quizforge/quiz-engine/internal/models"
	"github.com/quizforge/quiz-engine/internal/repositories"
	"github.com/quizforge/quiz-engine/internal/scoring"
	"github.com/quizforge/quiz-engine/internal/utils"
	"github.com/quizforge/quiz-engine/internal/validator"
)

// attemptTTL bounds how long an unsubmitted attempt survives in the cache
// when the test carries no time limit.
const attemptTTL = 24 * time.Hour

// timeLimitGrace is added to timed attempts so a submission racing the
// deadline still finds its state.
const timeLimitGrace = 5 * time.Minute

// Attempt is the mutable state of one student's pass through a test. It
// lives in Redis until submission finalizes it into a Submission row.
type Attempt struct {
	ID        string                 `json:"id"`
	TestID    uint                   `json:"test_id"`
	StudentID string                 `json:"student_id"`
	StartedAt time.Time              `json:"started_at"`
	Answers   models.AnswerSet       `json:"answers"`
	Matching  map[int]matching.State `json:"matching,omitempty"`
}

// MatchingView is what the student sees after a click: layout and
// selection state, but never per-pair correctness.
type MatchingView struct {
	RightOrder   []string      `json:"right_order"`
	Matched      []matchedItem `json:"matched"`
	ActiveLeft   string        `json:"active_left,omitempty"`
	ActiveRight  string        `json:"active_right,omitempty"`
	MatchedCount int           `json:"matched_count"`
	Total        int           `json:"total"`
	Complete     bool          `json:"complete"`
	Transition   string        `json:"transition,omitempty"`
}

type matchedItem struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// AttemptService drives a student through an attempt: answer capture,
// per-question interaction state, and the final submission boundary.
type AttemptService interface {
	Start(ctx context.Context, testID uint, studentID string) (*Attempt, error)
	Get(ctx context.Context, attemptID, studentID string) (*Attempt, error)

	SaveAnswer(ctx context.Context, attemptID, studentID string, questionIndex int, answer json.RawMessage) error

	RenderCloze(ctx context.Context, attemptID, studentID string, questionIndex int) ([]cloze.Token, error)
	ViewMatching(ctx context.Context, attemptID, studentID string, questionIndex int) (*MatchingView, error)
	ClickMatching(ctx context.Context, attemptID, studentID string, questionIndex int, side matching.Side, value string) (*MatchingView, error)

	Submit(ctx context.Context, attemptID, studentID string) (*models.Submission, error)
	GetResults(ctx context.Context, testID uint, studentID string) ([]*models.Submission, error)
	GetSubmission(ctx context.Context, id uint) (*models.Submission, error)
}

type attemptService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	scorer    *scoring.Engine
	validator *validator.Validator
	logger    utils.Logger
}

func NewAttemptService(repo repositories.Repository, cacheService cache.CacheService, publisher events.EventPublisher, v *validator.Validator, logger utils.Logger) AttemptService {
	return &attemptService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		scorer:    scoring.NewEngine(),
		validator: v,
		logger:    logger,
	}
}

func (s *attemptService) Start(ctx context.Context, testID uint, studentID string) (*Attempt, error) {
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.Status != models.TestPublished {
		return nil, ErrTestNotPublished
	}

	attempt := &Attempt{
		ID:        watermill.NewUUID(),
		TestID:    testID,
		StudentID: studentID,
		StartedAt: time.Now(),
		Answers:   make(models.AnswerSet),
	}
	if err := s.saveAttempt(ctx, attempt, test); err != nil {
		return nil, err
	}

	s.logger.Info("Attempt started", "attempt_id", attempt.ID, "test_id", testID, "student_id", studentID)
	return attempt, nil
}

func (s *attemptService) Get(ctx context.Context, attemptID, studentID string) (*Attempt, error) {
	return s.loadAttempt(ctx, attemptID, studentID)
}

func (s *attemptService) SaveAnswer(ctx context.Context, attemptID, studentID string, questionIndex int, answer json.RawMessage) error {
	attempt, test, question, err := s.loadQuestion(ctx, attemptID, studentID, questionIndex)
	if err != nil {
		return err
	}

	// Matching answers are built through clicks, not written wholesale.
	if question.Type == models.Matching {
		return fmt.Errorf("matching answers are recorded through click events")
	}

	// Decode against the question's type so malformed answers are rejected
	// at capture time rather than at submission.
	if _, err := models.DecodeAnswer(question.Type, answer); err != nil {
		return fmt.Errorf("question %d: %w", questionIndex+1, err)
	}

	attempt.Answers[questionIndex] = answer
	return s.saveAttempt(ctx, attempt, test)
}

func (s *attemptService) RenderCloze(ctx context.Context, attemptID, studentID string, questionIndex int) ([]cloze.Token, error) {
	attempt, _, question, err := s.loadQuestion(ctx, attemptID, studentID, questionIndex)
	if err != nil {
		return nil, err
	}
	if question.Type != models.WordBank {
		return nil, fmt.Errorf("question %d is not a word bank question", questionIndex+1)
	}

	var answer models.WordBankAnswer
	if raw, ok := attempt.Answers[questionIndex]; ok {
		decoded, err := models.DecodeAnswer(models.WordBank, raw)
		if err != nil {
			return nil, err
		}
		answer = *decoded.(*models.WordBankAnswer)
	}
	return cloze.RenderForStudent(*question, answer)
}

func (s *attemptService) ViewMatching(ctx context.Context, attemptID, studentID string, questionIndex int) (*MatchingView, error) {
	attempt, test, question, err := s.loadQuestion(ctx, attemptID, studentID, questionIndex)
	if err != nil {
		return nil, err
	}
	session, fresh, err := s.matchingSession(ctx, attempt, question, questionIndex)
	if err != nil {
		return nil, err
	}
	if fresh {
		// Persist the layout so re-renders before the first click keep
		// the same right-column order.
		if err := s.persistMatching(ctx, attempt, test, session, questionIndex); err != nil {
			return nil, err
		}
	}
	return buildMatchingView(session, matching.TransitionNoop), nil
}

func (s *attemptService) ClickMatching(ctx context.Context, attemptID, studentID string, questionIndex int, side matching.Side, value string) (*MatchingView, error) {
	attempt, test, question, err := s.loadQuestion(ctx, attemptID, studentID, questionIndex)
	if err != nil {
		return nil, err
	}
	session, _, err := s.matchingSession(ctx, attempt, question, questionIndex)
	if err != nil {
		return nil, err
	}

	transition, err := session.Click(side, value)
	if err != nil {
		return nil, fmt.Errorf("question %d: %w", questionIndex+1, err)
	}

	if err := s.persistMatching(ctx, attempt, test, session, questionIndex); err != nil {
		return nil, err
	}

	if transition == matching.TransitionCommit && session.Complete() {
		s.logger.Info("Matching question completed",
			"attempt_id", attempt.ID, "question", questionIndex+1, "total", len(session.RightOrder()))
	}
	return buildMatchingView(session, transition), nil
}

// Submit finalizes the attempt: completeness gate, scoring, persistence,
// event publication, and cache cleanup, in that order.
func (s *attemptService) Submit(ctx context.Context, attemptID, studentID string) (*models.Submission, error) {
	attempt, err := s.loadAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	test, err := s.loadTest(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}

	incomplete, err := s.validator.Submission().IncompleteQuestions(test.Questions, attempt.Answers)
	if err != nil {
		return nil, fmt.Errorf("submission validation failed: %w", err)
	}
	if len(incomplete) > 0 {
		return nil, &IncompleteSubmissionError{QuestionNumbers: incomplete}
	}

	result, err := s.scorer.Score(test.Questions, attempt.Answers)
	if err != nil {
		return nil, fmt.Errorf("scoring failed: %w", err)
	}
	percentage, graded := result.Percentage()

	answersJSON, err := json.Marshal(attempt.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	submission := &models.Submission{
		TestID:      attempt.TestID,
		StudentID:   studentID,
		Answers:     answersJSON,
		Score:       result.Earned,
		MaxScore:    result.Max,
		Percentage:  percentage,
		Ungraded:    !graded,
		SubmittedAt: time.Now(),
	}
	if err := s.repo.Submission().Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	if err := s.publisher.PublishSubmissionEvent(ctx, events.NewSubmissionGradedEvent(submission)); err != nil {
		// The submission is already durable; the event stream catches up
		// out of band.
		s.logger.LogError(err, "Failed to publish submission event", "submission_id", submission.ID)
	}

	if err := s.cache.DeletePattern(ctx, cache.AttemptPattern(attempt.ID)); err != nil {
		s.logger.Warn("Failed to clear attempt state", "attempt_id", attempt.ID, "error", err)
	}

	s.logger.Info("Submission recorded",
		"submission_id", submission.ID,
		"test_id", submission.TestID,
		"student_id", studentID,
		"score", submission.Score,
		"max_score", submission.MaxScore)
	return submission, nil
}

func (s *attemptService) GetResults(ctx context.Context, testID uint, studentID string) ([]*models.Submission, error) {
	submissions, err := s.repo.Submission().GetByTestAndStudent(ctx, testID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	return submissions, nil
}

func (s *attemptService) GetSubmission(ctx context.Context, id uint) (*models.Submission, error) {
	submission, err := s.repo.Submission().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return submission, nil
}

// ===== HELPERS =====

func (s *attemptService) loadAttempt(ctx context.Context, attemptID, studentID string) (*Attempt, error) {
	var attempt Attempt
	if err := s.cache.Get(ctx, cache.AttemptKey(attemptID), &attempt); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrAttemptNotOwned
	}
	if attempt.Answers == nil {
		attempt.Answers = make(models.AnswerSet)
	}
	return &attempt, nil
}

func (s *attemptService) loadQuestion(ctx context.Context, attemptID, studentID string, questionIndex int) (*Attempt, *models.Test, *models.Question, error) {
	attempt, err := s.loadAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, nil, nil, err
	}
	test, err := s.loadTest(ctx, attempt.TestID)
	if err != nil {
		return nil, nil, nil, err
	}
	if questionIndex < 0 || questionIndex >= len(test.Questions) {
		return nil, nil, nil, ErrQuestionNotFound
	}
	return attempt, test, &test.Questions[questionIndex], nil
}

// loadTest reads through the cache; published tests are hot during an
// attempt and change rarely.
func (s *attemptService) loadTest(ctx context.Context, testID uint) (*models.Test, error) {
	var cached models.Test
	if err := s.cache.Get(ctx, cache.TestKey(testID), &cached); err == nil {
		return &cached, nil
	}

	test, err := s.repo.Test().GetByIDWithDetails(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test: %w", err)
	}
	if err := s.cache.Set(ctx, cache.TestKey(testID), test, attemptTTL); err != nil {
		s.logger.Warn("Failed to cache test", "test_id", testID, "error", err)
	}
	return test, nil
}

// matchingSession rebuilds the click-state machine for one matching
// question, restoring persisted state or, for a first view, restoring just
// the cached right-column layout. fresh reports a newly generated layout.
func (s *attemptService) matchingSession(ctx context.Context, attempt *Attempt, question *models.Question, questionIndex int) (*matching.Session, bool, error) {
	if question.Type != models.Matching {
		return nil, false, fmt.Errorf("question %d is not a matching question", questionIndex+1)
	}
	content, err := question.MatchingContent()
	if err != nil {
		return nil, false, err
	}

	if state, ok := attempt.Matching[questionIndex]; ok {
		session, err := matching.NewSession(content, matching.WithState(state))
		return session, false, err
	}

	var rightOrder []string
	if err := s.cache.Get(ctx, cache.RightOrderKey(attempt.ID, questionIndex), &rightOrder); err == nil {
		session, err := matching.NewSession(content, matching.WithRightOrder(rightOrder))
		return session, false, err
	}

	session, err := matching.NewSession(content)
	return session, true, err
}

func (s *attemptService) persistMatching(ctx context.Context, attempt *Attempt, test *models.Test, session *matching.Session, questionIndex int) error {
	if attempt.Matching == nil {
		attempt.Matching = make(map[int]matching.State)
	}
	attempt.Matching[questionIndex] = session.State()

	raw, err := models.EncodeAnswer(session.Answer())
	if err != nil {
		return err
	}
	attempt.Answers[questionIndex] = raw

	ttl := s.attemptTTL(test)
	if err := s.cache.Set(ctx, cache.RightOrderKey(attempt.ID, questionIndex), session.RightOrder(), ttl); err != nil {
		s.logger.Warn("Failed to cache right order", "attempt_id", attempt.ID, "question", questionIndex+1, "error", err)
	}
	return s.saveAttempt(ctx, attempt, test)
}

func (s *attemptService) saveAttempt(ctx context.Context, attempt *Attempt, test *models.Test) error {
	if err := s.cache.Set(ctx, cache.AttemptKey(attempt.ID), attempt, s.attemptTTL(test)); err != nil {
		return fmt.Errorf("failed to save attempt state: %w", err)
	}
	return nil
}

func (s *attemptService) attemptTTL(test *models.Test) time.Duration {
	if test.TimeLimit != nil {
		return time.Duration(*test.TimeLimit)*time.Minute + timeLimitGrace
	}
	return attemptTTL
}

func buildMatchingView(session *matching.Session, transition matching.Transition) *MatchingView {
	answer := session.Answer()
	view := &MatchingView{
		RightOrder:   session.RightOrder(),
		Matched:      make([]matchedItem, 0, len(answer.MatchedPairs)),
		MatchedCount: answer.MatchedCount,
		Total:        answer.Total,
		Complete:     session.Complete(),
		Transition:   string(transition),
	}
	for _, p := range answer.MatchedPairs {
		// Correctness stays server-side until grading.
		view.Matched = append(view.Matched, matchedItem{Left: p.Left, Right: p.Right})
	}
	if left, ok := session.ActiveLeft(); ok {
		view.ActiveLeft = left
	}
	if right, ok := session.ActiveRight(); ok {
		view.ActiveRight = right
	}
	return view
}
