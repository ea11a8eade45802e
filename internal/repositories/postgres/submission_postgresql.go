package postgres

import (
	"context"
	"fmt"

	"github.com/quizforge/quiz-engine/internal/models"
	"github.com/quizforge/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (r *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *SubmissionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *SubmissionPostgreSQL) GetByTestAndStudent(ctx context.Context, testID uint, studentID string) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := r.db.WithContext(ctx).
		Where("test_id = ? AND student_id = ?", testID, studentID).
		Order("submitted_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	return submissions, nil
}

func (r *SubmissionPostgreSQL) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})
	if filters.TestID != nil {
		query = query.Where("test_id = ?", *filters.TestID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("submitted_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("submitted_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	var submissions []*models.Submission
	query = query.Order("submitted_at DESC")
	query = applyPagination(query, filters.Limit, filters.Offset)
	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

func (r *SubmissionPostgreSQL) GetStats(ctx context.Context, testID uint) (*repositories.SubmissionStats, error) {
	var stats repositories.SubmissionStats
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("test_id = ?", testID).
		Select("COUNT(*) as total_submissions, " +
			"COALESCE(AVG(percentage), 0) as average_percentage, " +
			"COALESCE(MAX(score), 0) as highest_score, " +
			"COALESCE(MIN(score), 0) as lowest_score").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get submission stats: %w", err)
	}
	return &stats, nil
}
