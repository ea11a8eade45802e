package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/quizforge/quiz-engine/internal/models"
	"gorm.io/gorm"
)

// Repository bundles the per-aggregate repositories a service needs.
type Repository interface {
	Test() TestRepository
	Submission() SubmissionRepository
}

// TestRepository persists the Test aggregate (questions and sections ride
// along as nested values).
type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error)
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id uint) error // soft delete

	List(ctx context.Context, filters TestFilters) ([]*models.Test, int64, error)
	GetByCreator(ctx context.Context, creatorID string, filters TestFilters) ([]*models.Test, int64, error)

	UpdateStatus(ctx context.Context, id uint, status models.TestStatus) error
	ExistsByTitle(ctx context.Context, title string, creatorID string, excludeID *uint) (bool, error)
	HasSubmissions(ctx context.Context, id uint) (bool, error)

	ReplaceQuestions(ctx context.Context, testID uint, questions []models.Question) error
}

// SubmissionRepository persists finalized submissions. Submissions are
// written once and read back for result re-display; no update path exists.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	GetByTestAndStudent(ctx context.Context, testID uint, studentID string) ([]*models.Submission, error)
	List(ctx context.Context, filters SubmissionFilters) ([]*models.Submission, int64, error)
	GetStats(ctx context.Context, testID uint) (*SubmissionStats, error)
}

// ===== FILTERS =====

type TestFilters struct {
	Status     *models.TestStatus     `json:"status"`
	Visibility *models.TestVisibility `json:"visibility"`
	CreatedBy  *string                `json:"created_by"`
	Limit      int                    `json:"limit"`
	Offset     int                    `json:"offset"`
	SortBy     string                 `json:"sort_by"`    // "created_at", "title"
	SortOrder  string                 `json:"sort_order"` // "asc", "desc"
}

type SubmissionFilters struct {
	TestID    *uint      `json:"test_id"`
	StudentID *string    `json:"student_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== STATISTICS =====

type SubmissionStats struct {
	TotalSubmissions  int     `json:"total_submissions"`
	AveragePercentage float64 `json:"average_percentage"`
	HighestScore      int     `json:"highest_score"`
	LowestScore       int     `json:"lowest_score"`
}

// ErrDuplicateTitle is returned when a creator already has a test with the
// same title.
var ErrDuplicateTitle = errors.New("duplicate test title for creator")

// IsNotFoundError reports whether an error is the storage layer's
// record-not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateTitleError reports whether an error is a title collision.
func IsDuplicateTitleError(err error) bool {
	return errors.Is(err, ErrDuplicateTitle)
}
