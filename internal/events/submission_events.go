package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/quizforge/quiz-engine/internal/models"
)

type EventType string

const (
	EventSubmissionGraded EventType = "submission.graded"
)

const eventSource = "quiz-engine"
const eventVersion = "1.0"

// SubmissionGradedPayload carries the scored submission record across the
// submission boundary. Consumers (notification dispatch, gradebooks) live
// outside this service.
type SubmissionGradedPayload struct {
	SubmissionID uint      `json:"submission_id"`
	TestID       uint      `json:"test_id"`
	StudentID    string    `json:"student_id"`
	Score        int       `json:"score"`
	MaxScore     int       `json:"max_score"`
	Percentage   float64   `json:"percentage"`
	Ungraded     bool      `json:"ungraded"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// SubmissionEvent is the envelope published to the submission topic.
type SubmissionEvent struct {
	ID        string                  `json:"id"`
	Type      EventType               `json:"type"`
	Source    string                  `json:"source"`
	Version   string                  `json:"version"`
	Timestamp time.Time               `json:"timestamp"`
	Payload   SubmissionGradedPayload `json:"payload"`
}

// NewSubmissionGradedEvent builds the graded event for a finalized submission.
func NewSubmissionGradedEvent(sub *models.Submission) *SubmissionEvent {
	return &SubmissionEvent{
		ID:        watermill.NewUUID(),
		Type:      EventSubmissionGraded,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now(),
		Payload: SubmissionGradedPayload{
			SubmissionID: sub.ID,
			TestID:       sub.TestID,
			StudentID:    sub.StudentID,
			Score:        sub.Score,
			MaxScore:     sub.MaxScore,
			Percentage:   sub.Percentage,
			Ungraded:     sub.Ungraded,
			SubmittedAt:  sub.SubmittedAt,
		},
	}
}
