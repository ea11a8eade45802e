package postgres

import (
	"github.com/quizforge/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	test       repositories.TestRepository
	submission repositories.SubmissionRepository
}

// NewRepository wires the postgres-backed repositories into the aggregate
// the services consume.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		test:       NewTestPostgreSQL(db),
		submission: NewSubmissionPostgreSQL(db),
	}
}

func (r *repository) Test() repositories.TestRepository {
	return r.test
}

func (r *repository) Submission() repositories.SubmissionRepository {
	return r.submission
}
