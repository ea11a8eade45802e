package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-engine/internal/cache"
	"github.com/quizforge/quiz-engine/internal/events"
	"github.com/quizforge/quiz-engine/internal/matching"
	"github.com/quizforge/quiz-engine/internal/models"
	"github.com/quizforge/quiz-engine/internal/repositories"
	"github.com/quizforge/quiz-engine/internal/utils"
	"github.com/quizforge/quiz-engine/internal/validator"
)

// ===== MOCKS =====

type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) Update(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTestRepository) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepository) GetByCreator(ctx context.Context, creatorID string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	args := m.Called(ctx, creatorID, filters)
	return args.Get(0).([]*models.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepository) UpdateStatus(ctx context.Context, id uint, status models.TestStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTestRepository) ExistsByTitle(ctx context.Context, title string, creatorID string, excludeID *uint) (bool, error) {
	args := m.Called(ctx, title, creatorID, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestRepository) HasSubmissions(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestRepository) ReplaceQuestions(ctx context.Context, testID uint, questions []models.Question) error {
	args := m.Called(ctx, testID, questions)
	return args.Error(0)
}

type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	args := m.Called(ctx, submission)
	if args.Error(0) == nil {
		submission.ID = 101
	}
	return args.Error(0)
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) GetByTestAndStudent(ctx context.Context, testID uint, studentID string) ([]*models.Submission, error) {
	args := m.Called(ctx, testID, studentID)
	return args.Get(0).([]*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Submission), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubmissionRepository) GetStats(ctx context.Context, testID uint) (*repositories.SubmissionStats, error) {
	args := m.Called(ctx, testID)
	return args.Get(0).(*repositories.SubmissionStats), args.Error(1)
}

type mockRepository struct {
	tests       *MockTestRepository
	submissions *MockSubmissionRepository
}

func (m *mockRepository) Test() repositories.TestRepository             { return m.tests }
func (m *mockRepository) Submission() repositories.SubmissionRepository { return m.submissions }

// memoryCache is a map-backed CacheService; attempt state round-trips
// through it the same way it does through Redis.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	raw, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

// ===== FIXTURES =====

func publishedTest(t *testing.T) *models.Test {
	t.Helper()

	multiple, err := models.NewQuestion(models.Multiple, "Pick b")
	require.NoError(t, err)
	require.NoError(t, multiple.SetContent(&models.MultipleContent{
		Options:       []string{"a", "b"},
		CorrectAnswer: 1,
	}))

	match, err := models.NewQuestion(models.Matching, "Match capitals")
	require.NoError(t, err)
	require.NoError(t, match.SetContent(&models.MatchingContent{
		Pairs: []models.MatchPair{
			{ID: "p0", Left: "France", Right: "Paris"},
			{ID: "p1", Left: "Japan", Right: "Tokyo"},
		},
		NextPairID: 2,
	}))

	return &models.Test{
		ID:        7,
		Title:     "Geography quiz",
		Status:    models.TestPublished,
		CreatedBy: "teacher-1",
		Questions: []models.Question{multiple, match},
	}
}

type attemptFixture struct {
	service   AttemptService
	tests     *MockTestRepository
	subs      *MockSubmissionRepository
	cache     *memoryCache
	publisher *events.MockEventPublisher
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	logger := utils.NewDevelopmentLogger()
	f := &attemptFixture{
		tests:     new(MockTestRepository),
		subs:      new(MockSubmissionRepository),
		cache:     newMemoryCache(),
		publisher: events.NewMockEventPublisher(utils.ToSlog(logger)),
	}
	repo := &mockRepository{tests: f.tests, submissions: f.subs}
	f.service = NewAttemptService(repo, f.cache, f.publisher, validator.New(), logger)
	return f
}

// ===== TESTS =====

func TestStartAttemptRequiresPublishedTest(t *testing.T) {
	f := newAttemptFixture(t)
	draft := publishedTest(t)
	draft.Status = models.TestDraft
	f.tests.On("GetByIDWithDetails", mock.Anything, uint(7)).Return(draft, nil)

	_, err := f.service.Start(context.Background(), 7, "student-1")
	assert.ErrorIs(t, err, ErrTestNotPublished)
}

func TestStartAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	f.tests.On("GetByIDWithDetails", mock.Anything, uint(7)).Return(publishedTest(t), nil)

	attempt, err := f.service.Start(context.Background(), 7, "student-1")
	require.NoError(t, err)
	assert.NotEmpty(t, attempt.ID)
	assert.Equal(t, uint(7), attempt.TestID)
	assert.Equal(t, "student-1", attempt.StudentID)

	loaded, err := f.service.Get(context.Background(), attempt.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, loaded.ID)

	_, err = f.service.Get(context.Background(), attempt.ID, "someone-else")
	assert.ErrorIs(t, err, ErrAttemptNotOwned)

	_, err = f.service.Get(context.Background(), "no-such-attempt", "student-1")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestSaveAnswerValidatesAgainstQuestionType(t *testing.T) {
	f := newAttemptFixture(t)
	f.tests.On("GetByIDWithDetails", mock.Anything, uint(7)).Return(publishedTest(t), nil)

	attempt, err := f.service.Start(context.Background(), 7, "student-1")
	require.NoError(t, err)

	idx := 1
	answer, err := models.EncodeAnswer(&models.MultipleAnswer{SelectedIndex: &idx})
	require.NoError(t, err)
	require.NoError(t, f.service.SaveAnswer(context.Background(), attempt.ID, "student-1", 0, answer))

	// Matching answers only come in through click events.
	err = f.service.SaveAnswer(context.Background(), attempt.ID, "student-1", 1, answer)
	assert.Error(t, err)

	err = f.service.SaveAnswer(context.Background(), attempt.ID, "student-1", 5, answer)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestMatchingClicksPersistAcrossRequests(t *testing.T) {
	f := newAttemptFixture(t)
	f.tests.On("GetByIDWithDetails", mock.Anything, uint(7)).Return(publishedTest(t), nil)

	attempt, err := f.service.Start(context.Background(), 7, "student-1")
	require.NoError(t, err)
	ctx := context.Background()

	view, err := f.service.ViewMatching(ctx, attempt.ID, "student-1", 1)
	require.NoError(t, err)
	firstLayout := view.RightOrder

	view, err = f.service.ClickMatching(ctx, attempt.ID, "student-1", 1, matching.SideLeft, "France")
	require.NoError(t, err)
	assert.Equal(t, "France", view.ActiveLeft)
	assert.Equal(t, firstLayout, view.RightOrder, "layout survives between events")

	view, err = f.service.ClickMatching(ctx, attempt.ID, "student-1", 1, matching.SideRight, "Paris")
	require.NoError(t, err)
	assert.Equal(t, string(matching.TransitionCommit), view.Transition)
	assert.Equal(t, 1, view.MatchedCount)
	assert.Empty(t, view.ActiveLeft)

	// A later view rebuilds the same state from the persisted snapshot.
	view, err = f.service.ViewMatching(ctx, attempt.ID, "student-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.MatchedCount)
	assert.Equal(t, firstLayout, view.RightOrder)
	assert.False(t, view.Complete)
}

func TestSubmitBlocksIncompleteAttempts(t *testing.T) {
	f := newAttemptFixture(t)
	f.tests.On("GetByIDWithDetails", mock.Anything, uint(7)).Return(publishedTest(t), nil)

	attempt, err := f.service.Start(context.Background(), 7, "student-1")
	require.NoError(t, err)

	_, err = f.service.Submit(context.Background(), attempt.ID, "student-1")
	var incomplete *IncompleteSubmissionError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []int{1, 2}, incomplete.QuestionNumbers)
	assert.Empty(t, f.publisher.GetPublishedEvents())
}

func TestSubmitScoresPersistsAndPublishes(t *testing.T) {
	f := newAttemptFixture(t)
	f.tests.On("GetByIDWithDetails", mock.Anything, uint(7)).Return(publishedTest(t), nil)
	f.subs.On("Create", mock.Anything, mock.AnythingOfType("*models.Submission")).Return(nil)

	ctx := context.Background()
	attempt, err := f.service.Start(ctx, 7, "student-1")
	require.NoError(t, err)

	idx := 1
	answer, err := models.EncodeAnswer(&models.MultipleAnswer{SelectedIndex: &idx})
	require.NoError(t, err)
	require.NoError(t, f.service.SaveAnswer(ctx, attempt.ID, "student-1", 0, answer))

	for _, click := range [][2]string{
		{"left", "France"}, {"right", "Paris"},
		{"left", "Japan"}, {"right", "Tokyo"},
	} {
		_, err := f.service.ClickMatching(ctx, attempt.ID, "student-1", 1, matching.Side(click[0]), click[1])
		require.NoError(t, err)
	}

	submission, err := f.service.Submit(ctx, attempt.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 3, submission.Score)
	assert.Equal(t, 3, submission.MaxScore)
	assert.Equal(t, 100.0, submission.Percentage)
	assert.False(t, submission.Ungraded)

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventSubmissionGraded, published[0].Type)
	assert.Equal(t, uint(101), published[0].Payload.SubmissionID)
	assert.Equal(t, "student-1", published[0].Payload.StudentID)

	// Attempt state is gone once the submission is durable.
	_, err = f.service.Get(ctx, attempt.ID, "student-1")
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	f.subs.AssertExpectations(t)
}
