package validator

import (
	"fmt"
	"strings"

	"github.com/quizforge/quiz-engine/internal/models"
)

// SubmissionValidator decides per question whether an answer counts as
// attempted before allowing submission. It reports which question numbers
// are still missing, never which are wrong.
type SubmissionValidator struct{}

func NewSubmissionValidator() *SubmissionValidator {
	return &SubmissionValidator{}
}

// IncompleteQuestions returns the 1-based indices of questions whose
// answers are not present enough to submit. An empty result means the
// submission may proceed.
func (v *SubmissionValidator) IncompleteQuestions(questions []models.Question, answers models.AnswerSet) ([]int, error) {
	var incomplete []int
	for i := range questions {
		complete, err := v.Attempted(&questions[i], answers[i])
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		if !complete {
			incomplete = append(incomplete, i+1)
		}
	}
	return incomplete, nil
}

// Attempted applies the per-type completeness rule. Wrong answers count;
// only absent ones do not.
func (v *SubmissionValidator) Attempted(q *models.Question, raw []byte) (bool, error) {
	answer, err := models.DecodeAnswer(q.Type, raw)
	if err != nil {
		return false, err
	}

	switch q.Type {
	case models.Multiple:
		return answer.(*models.MultipleAnswer).SelectedIndex != nil, nil

	case models.Text:
		return strings.TrimSpace(answer.(*models.TextAnswer).Text) != "", nil

	case models.TrueFalse:
		return answer.(*models.TrueFalseAnswer).Answer != nil, nil

	case models.WordBank:
		content, err := q.WordBankContent()
		if err != nil {
			return false, err
		}
		a := answer.(*models.WordBankAnswer)
		for blankID := range content.CorrectAnswers {
			if a.Selections[blankID] == "" {
				return false, nil
			}
		}
		return true, nil

	case models.Matching:
		a := answer.(*models.MatchingAnswer)
		content, err := q.MatchingContent()
		if err != nil {
			return false, err
		}
		return a.MatchedCount == len(content.Pairs) && a.MatchedCount == a.Total, nil

	case models.Audio:
		content, err := q.AudioContent()
		if err != nil {
			return false, err
		}
		a := answer.(*models.AudioAnswer)
		for i := range content.SubQuestions {
			sub := &content.SubQuestions[i]
			if sub.Type == models.Audio {
				return false, fmt.Errorf("audio questions cannot nest audio sub-questions")
			}
			complete, err := v.Attempted(sub, a.SubAnswers[i])
			if err != nil {
				return false, fmt.Errorf("sub-question %d: %w", i+1, err)
			}
			if !complete {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("unsupported question type: %s", q.Type)
	}
}
