package validator

import (
	"fmt"
	"strings"

	"github.com/quizforge/quiz-engine/internal/cloze"
	"github.com/quizforge/quiz-engine/internal/models"
)

// QuestionValidator checks authoring completeness per question variant
// before a test can be saved. Failures are return values, never panics:
// they represent expected author states.
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// AuthoringWarning is a detected-but-not-auto-fixed inconsistency: the
// test may still be saved, but the finding is surfaced (and logged) rather
// than silently mis-scored later.
type AuthoringWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AuthoringReport collects everything save-time validation found. Saving
// is blocked while Errors is non-empty; Warnings never block.
type AuthoringReport struct {
	Errors   ValidationErrors   `json:"errors"`
	Warnings []AuthoringWarning `json:"warnings"`
}

func (r *AuthoringReport) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateTest validates every question of a test, keying findings by
// 1-based question (and sub-question) index for display.
func (v *QuestionValidator) ValidateTest(test *models.Test) *AuthoringReport {
	report := &AuthoringReport{}
	for i := range test.Questions {
		field := fmt.Sprintf("questions[%d]", i+1)
		v.validateInto(report, &test.Questions[i], field, true)
	}
	return report
}

// ValidateQuestion validates a single question, including sub-questions.
func (v *QuestionValidator) ValidateQuestion(q *models.Question) *AuthoringReport {
	report := &AuthoringReport{}
	v.validateInto(report, q, "question", true)
	return report
}

func (v *QuestionValidator) validateInto(report *AuthoringReport, q *models.Question, field string, allowAudio bool) {
	if strings.TrimSpace(q.Text) == "" && q.Type != models.Audio {
		report.addError(field+".text", "question text is required")
	}
	if !q.Type.Valid() {
		report.addError(field+".type", fmt.Sprintf("unsupported question type: %s", q.Type))
		return
	}

	switch q.Type {
	case models.Multiple:
		v.validateMultiple(report, q, field)
	case models.Text:
		v.validateText(report, q, field)
	case models.TrueFalse:
		// any boolean is a complete answer key
	case models.WordBank:
		v.validateWordBank(report, q, field)
	case models.Matching:
		v.validateMatching(report, q, field)
	case models.Audio:
		if !allowAudio {
			report.addError(field+".type", "audio questions cannot nest audio sub-questions")
			return
		}
		v.validateAudio(report, q, field)
	}
}

func (v *QuestionValidator) validateMultiple(report *AuthoringReport, q *models.Question, field string) {
	content, err := decodeContent[models.MultipleContent](q)
	if err != nil {
		report.addError(field+".content", err.Error())
		return
	}
	if len(content.Options) < 2 {
		report.addError(field+".options", "must have at least 2 options")
	}
	for i, opt := range content.Options {
		if strings.TrimSpace(opt) == "" {
			report.addError(fmt.Sprintf("%s.options[%d]", field, i+1), "option text cannot be empty")
		}
	}
	if content.CorrectAnswer < 0 || content.CorrectAnswer >= len(content.Options) {
		report.addError(field+".correct_answer", "correct answer must be the index of one option")
	}
}

func (v *QuestionValidator) validateText(report *AuthoringReport, q *models.Question, field string) {
	content, err := decodeContent[models.TextContent](q)
	if err != nil {
		report.addError(field+".content", err.Error())
		return
	}
	if strings.TrimSpace(content.CorrectAnswer) == "" {
		report.addError(field+".correct_answer", "correct answer is required")
	}
}

func (v *QuestionValidator) validateWordBank(report *AuthoringReport, q *models.Question, field string) {
	content, err := decodeContent[models.WordBankContent](q)
	if err != nil {
		report.addError(field+".content", err.Error())
		return
	}
	if len(content.CorrectAnswers) == 0 {
		report.addError(field+".blanks", "must have at least 1 blank")
	}
	if len(content.Bank) == 0 {
		report.addError(field+".bank", "word bank cannot be empty")
	}

	findings, err := cloze.Inconsistencies(*q)
	if err != nil {
		report.addError(field+".content", err.Error())
		return
	}
	for _, f := range findings {
		switch f.Kind {
		case cloze.OrphanBlank:
			report.addError(fmt.Sprintf("%s.blanks[%s]", field, f.BlankID), "blank has no correct answer entry")
		case cloze.OrphanAnswer:
			report.addError(fmt.Sprintf("%s.blanks[%s]", field, f.BlankID), "answer entry has no blank in the question text")
		case cloze.UnassignedBlank:
			report.addError(fmt.Sprintf("%s.blanks[%s]", field, f.BlankID), "blank has no correct answer assigned")
		case cloze.AnswerNotInBank:
			// Lenient by observed authoring flow: flagged, not blocked.
			report.addWarning(fmt.Sprintf("%s.blanks[%s]", field, f.BlankID),
				fmt.Sprintf("correct answer %q is no longer in the word bank", f.Word))
		}
	}
}

func (v *QuestionValidator) validateMatching(report *AuthoringReport, q *models.Question, field string) {
	content, err := decodeContent[models.MatchingContent](q)
	if err != nil {
		report.addError(field+".content", err.Error())
		return
	}
	if len(content.Pairs) == 0 {
		report.addError(field+".pairs", "must have at least 1 pair")
	}

	lefts := make(map[string]bool, len(content.Pairs))
	rights := make(map[string]bool, len(content.Pairs))
	for i, p := range content.Pairs {
		pairField := fmt.Sprintf("%s.pairs[%d]", field, i+1)
		if strings.TrimSpace(p.Left) == "" || strings.TrimSpace(p.Right) == "" {
			report.addError(pairField, "pair is missing a side")
			continue
		}
		if lefts[p.Left] {
			report.addError(pairField, fmt.Sprintf("duplicate left value %q", p.Left))
		}
		lefts[p.Left] = true
		if rights[p.Right] {
			// Ambiguous puzzle, but permitted to persist.
			report.addWarning(pairField, fmt.Sprintf("duplicate right value %q makes the pairing ambiguous", p.Right))
		}
		rights[p.Right] = true
	}
}

func (v *QuestionValidator) validateAudio(report *AuthoringReport, q *models.Question, field string) {
	content, err := decodeContent[models.AudioContent](q)
	if err != nil {
		report.addError(field+".content", err.Error())
		return
	}
	if strings.TrimSpace(content.AudioURL) == "" {
		report.addError(field+".audio_url", "audio reference is required")
	}
	if len(content.SubQuestions) == 0 {
		report.addError(field+".sub_questions", "must have at least 1 sub-question")
	}
	for i := range content.SubQuestions {
		subField := fmt.Sprintf("%s.sub_questions[%d]", field, i+1)
		v.validateInto(report, &content.SubQuestions[i], subField, false)
	}
}

func (r *AuthoringReport) addError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

func (r *AuthoringReport) addWarning(field, message string) {
	r.Warnings = append(r.Warnings, AuthoringWarning{Field: field, Message: message})
}

func decodeContent[C any](q *models.Question) (*C, error) {
	content, err := q.DecodeContent()
	if err != nil {
		return nil, err
	}
	typed, ok := content.(*C)
	if !ok {
		return nil, fmt.Errorf("content does not match question type %s", q.Type)
	}
	return typed, nil
}
