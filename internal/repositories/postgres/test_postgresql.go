package postgres

import (
	"context"
	"fmt"

	"github.com/quizforge/quiz-engine/internal/models"
	"github.com/quizforge/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type TestPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{db: db}
}

func (r *TestPostgreSQL) Create(ctx context.Context, test *models.Test) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := r.existsByTitle(tx, test.Title, test.CreatedBy, nil)
		if err != nil {
			return fmt.Errorf("failed to check title uniqueness: %w", err)
		}
		if exists {
			return fmt.Errorf("test %q: %w", test.Title, repositories.ErrDuplicateTitle)
		}

		test.Status = models.TestDraft
		if err := tx.Create(test).Error; err != nil {
			return fmt.Errorf("failed to create test: %w", err)
		}
		return nil
	})
}

func (r *TestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	if err := r.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		First(&test, id).Error
	if err != nil {
		return nil, err
	}

	test.QuestionsCount = len(test.Questions)
	if total, err := test.MaxScore(); err == nil {
		test.TotalPoints = total
	}
	return &test, nil
}

func (r *TestPostgreSQL) Update(ctx context.Context, test *models.Test) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Test
		if err := tx.First(&current, test.ID).Error; err != nil {
			return fmt.Errorf("test not found: %w", err)
		}

		if test.Title != current.Title {
			exists, err := r.existsByTitle(tx, test.Title, test.CreatedBy, &test.ID)
			if err != nil {
				return fmt.Errorf("failed to check title uniqueness: %w", err)
			}
			if exists {
				return fmt.Errorf("test %q: %w", test.Title, repositories.ErrDuplicateTitle)
			}
		}

		if err := tx.Save(test).Error; err != nil {
			return fmt.Errorf("failed to update test: %w", err)
		}
		return nil
	})
}

func (r *TestPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Test{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete test: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TestPostgreSQL) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Test{})
	query = applyTestFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tests: %w", err)
	}

	var tests []*models.Test
	query = applySorting(query, filters.SortBy, filters.SortOrder)
	query = applyPagination(query, filters.Limit, filters.Offset)
	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, total, nil
}

func (r *TestPostgreSQL) GetByCreator(ctx context.Context, creatorID string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	filters.CreatedBy = &creatorID
	return r.List(ctx, filters)
}

func (r *TestPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.TestStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Test{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update test status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TestPostgreSQL) ExistsByTitle(ctx context.Context, title string, creatorID string, excludeID *uint) (bool, error) {
	return r.existsByTitle(r.db.WithContext(ctx), title, creatorID, excludeID)
}

func (r *TestPostgreSQL) HasSubmissions(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("test_id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count > 0, nil
}

// ReplaceQuestions swaps a test's full question list in one transaction,
// preserving question order as given.
func (r *TestPostgreSQL) ReplaceQuestions(ctx context.Context, testID uint, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", testID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("failed to clear questions: %w", err)
		}
		for i := range questions {
			questions[i].TestID = testID
			questions[i].Order = i
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return fmt.Errorf("failed to insert questions: %w", err)
			}
		}
		return nil
	})
}

func (r *TestPostgreSQL) existsByTitle(tx *gorm.DB, title string, creatorID string, excludeID *uint) (bool, error) {
	query := tx.Model(&models.Test{}).Where("title = ? AND created_by = ?", title, creatorID)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ===== SHARED QUERY HELPERS =====

func applyTestFilters(query *gorm.DB, filters repositories.TestFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Visibility != nil {
		query = query.Where("visibility = ?", *filters.Visibility)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	return query
}

func applySorting(query *gorm.DB, sortBy, sortOrder string) *gorm.DB {
	if sortBy == "" {
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
