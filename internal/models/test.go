package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TestVisibility string

const (
	VisibilityPrivate TestVisibility = "private"
	VisibilityGroup   TestVisibility = "group"
	VisibilityPublic  TestVisibility = "public"
)

type TestStatus string

const (
	TestDraft     TestStatus = "draft"
	TestPublished TestStatus = "published"
	TestArchived  TestStatus = "archived"
)

// Test is the aggregate handed across the persistence boundary: ordered
// questions, optional reading-passage sections, optional time limit.
type Test struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string        `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	TimeLimit   *int           `json:"time_limit" validate:"omitempty,min=1,max=300"` // minutes
	Visibility  TestVisibility `json:"visibility" gorm:"default:private" validate:"omitempty,oneof=private group public"`
	Status      TestStatus     `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft published archived"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Sections  []Section  `json:"sections" gorm:"foreignKey:TestID"`
	Questions []Question `json:"questions" gorm:"foreignKey:TestID"`

	// Computed (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	TotalPoints    int `json:"total_points" gorm:"-"`
}

func (Test) TableName() string {
	return "tests"
}

// Section is a shared reading passage questions may point at.
type Section struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	TestID uint   `json:"test_id" gorm:"not null;index"`
	Title  string `json:"title" gorm:"size:200"`
	Body   string `json:"body" gorm:"type:text"`
	Order  int    `json:"order" gorm:"default:0"`
}

func (Section) TableName() string {
	return "test_sections"
}

// MaxScore is the structural point count of the test, independent of what
// any student attempted.
func (t *Test) MaxScore() (int, error) {
	total := 0
	for i := range t.Questions {
		units, err := t.Questions[i].ScorableUnits()
		if err != nil {
			return 0, err
		}
		total += units
	}
	return total, nil
}

// Submission is the record emitted across the submission boundary once an
// attempt is finalized. Answers become immutable at that point.
type Submission struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	TestID    uint   `json:"test_id" gorm:"not null;index"`
	StudentID string `json:"student_id" gorm:"not null;index;size:255"`

	Answers    datatypes.JSON `json:"answers" gorm:"type:jsonb"` // AnswerSet
	Score      int            `json:"score"`
	MaxScore   int            `json:"max_score"`
	Percentage float64        `json:"percentage"`
	Ungraded   bool           `json:"ungraded"` // max score was zero

	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`

	Test Test `json:"test" gorm:"foreignKey:TestID"`
}

func (Submission) TableName() string {
	return "submissions"
}
