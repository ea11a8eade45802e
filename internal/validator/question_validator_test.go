package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-engine/internal/models"
)

func mustQuestion(t *testing.T, qt models.QuestionType, text string, content interface{}) models.Question {
	t.Helper()
	q := models.Question{Type: qt, Text: text, Points: 1}
	require.NoError(t, q.SetContent(content))
	return q
}

func errorFields(report *AuthoringReport) []string {
	fields := make([]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidateMultiple(t *testing.T) {
	v := NewQuestionValidator()

	valid := mustQuestion(t, models.Multiple, "Pick one", &models.MultipleContent{
		Options:       []string{"a", "b"},
		CorrectAnswer: 1,
	})
	assert.True(t, v.ValidateQuestion(&valid).Valid())

	tooFew := mustQuestion(t, models.Multiple, "Pick one", &models.MultipleContent{
		Options:       []string{"a"},
		CorrectAnswer: 0,
	})
	report := v.ValidateQuestion(&tooFew)
	assert.False(t, report.Valid())
	assert.Contains(t, errorFields(report), "question.options")

	badIndex := mustQuestion(t, models.Multiple, "Pick one", &models.MultipleContent{
		Options:       []string{"a", "b"},
		CorrectAnswer: 5,
	})
	report = v.ValidateQuestion(&badIndex)
	assert.Contains(t, errorFields(report), "question.correct_answer")

	emptyOption := mustQuestion(t, models.Multiple, "Pick one", &models.MultipleContent{
		Options:       []string{"a", "  "},
		CorrectAnswer: 0,
	})
	report = v.ValidateQuestion(&emptyOption)
	assert.Contains(t, errorFields(report), "question.options[2]")
}

func TestValidateTextAndTrueFalse(t *testing.T) {
	v := NewQuestionValidator()

	missingKey := mustQuestion(t, models.Text, "Capital of France?", &models.TextContent{})
	report := v.ValidateQuestion(&missingKey)
	assert.Contains(t, errorFields(report), "question.correct_answer")

	tf := mustQuestion(t, models.TrueFalse, "The sky is green.", &models.TrueFalseContent{CorrectAnswer: false})
	assert.True(t, v.ValidateQuestion(&tf).Valid(), "false is a complete answer key")
}

func TestValidateRequiresText(t *testing.T) {
	v := NewQuestionValidator()

	q := mustQuestion(t, models.Multiple, "   ", &models.MultipleContent{
		Options:       []string{"a", "b"},
		CorrectAnswer: 0,
	})
	report := v.ValidateQuestion(&q)
	assert.Contains(t, errorFields(report), "question.text")
}

func TestValidateWordBank(t *testing.T) {
	v := NewQuestionValidator()

	valid := mustQuestion(t, models.WordBank, "Sky is {{blank:b0}}", &models.WordBankContent{
		Bank:           []string{"blue", "green"},
		CorrectAnswers: map[string]string{"b0": "blue"},
		NextBlankID:    1,
	})
	report := v.ValidateQuestion(&valid)
	assert.True(t, report.Valid())
	assert.Empty(t, report.Warnings)

	empty := mustQuestion(t, models.WordBank, "no blanks here", &models.WordBankContent{
		CorrectAnswers: map[string]string{},
	})
	report = v.ValidateQuestion(&empty)
	fields := errorFields(report)
	assert.Contains(t, fields, "question.blanks")
	assert.Contains(t, fields, "question.bank")
}

func TestValidateWordBankInconsistencies(t *testing.T) {
	v := NewQuestionValidator()

	// Marker b1 has no answer entry; entry b2 has no marker; b0's word left
	// the bank.
	q := mustQuestion(t, models.WordBank, "{{blank:b0}} {{blank:b1}}", &models.WordBankContent{
		Bank:           []string{"green"},
		CorrectAnswers: map[string]string{"b0": "blue", "b2": "green"},
		NextBlankID:    3,
	})
	report := v.ValidateQuestion(&q)

	fields := errorFields(report)
	assert.Contains(t, fields, "question.blanks[b1]")
	assert.Contains(t, fields, "question.blanks[b2]")

	require.Len(t, report.Warnings, 1, "answer-not-in-bank is flagged, not blocked")
	assert.Equal(t, "question.blanks[b0]", report.Warnings[0].Field)
}

func TestValidateMatching(t *testing.T) {
	v := NewQuestionValidator()

	noPairs := mustQuestion(t, models.Matching, "Match them", &models.MatchingContent{})
	report := v.ValidateQuestion(&noPairs)
	assert.Contains(t, errorFields(report), "question.pairs")

	q := mustQuestion(t, models.Matching, "Match them", &models.MatchingContent{
		Pairs: []models.MatchPair{
			{ID: "p0", Left: "France", Right: "Paris"},
			{ID: "p1", Left: "France", Right: "Lyon"},
			{ID: "p2", Left: "Japan", Right: "Paris"},
			{ID: "p3", Left: "", Right: "Rome"},
		},
		NextPairID: 4,
	})
	report = v.ValidateQuestion(&q)

	fields := errorFields(report)
	assert.Contains(t, fields, "question.pairs[2]", "duplicate left blocks saving")
	assert.Contains(t, fields, "question.pairs[4]", "missing side blocks saving")

	require.Len(t, report.Warnings, 1, "duplicate right is ambiguous but permitted")
	assert.Equal(t, "question.pairs[3]", report.Warnings[0].Field)
}

func TestValidateAudio(t *testing.T) {
	v := NewQuestionValidator()

	sub := mustQuestion(t, models.TrueFalse, "Heard a trumpet?", &models.TrueFalseContent{CorrectAnswer: true})
	valid := mustQuestion(t, models.Audio, "", &models.AudioContent{
		AudioURL:     "https://cdn.example.com/clip.mp3",
		SubQuestions: []models.Question{sub},
	})
	assert.True(t, v.ValidateQuestion(&valid).Valid(), "audio questions do not need body text")

	bare := mustQuestion(t, models.Audio, "", &models.AudioContent{})
	report := v.ValidateQuestion(&bare)
	fields := errorFields(report)
	assert.Contains(t, fields, "question.audio_url")
	assert.Contains(t, fields, "question.sub_questions")
}

func TestValidateAudioRejectsNestedAudio(t *testing.T) {
	v := NewQuestionValidator()

	inner := mustQuestion(t, models.Audio, "", &models.AudioContent{
		AudioURL:     "https://cdn.example.com/inner.mp3",
		SubQuestions: []models.Question{},
	})
	q := mustQuestion(t, models.Audio, "", &models.AudioContent{
		AudioURL:     "https://cdn.example.com/outer.mp3",
		SubQuestions: []models.Question{inner},
	})

	report := v.ValidateQuestion(&q)
	assert.Contains(t, errorFields(report), "question.sub_questions[1].type")
}

func TestValidateAudioFlagsBrokenSubQuestions(t *testing.T) {
	v := NewQuestionValidator()

	sub := mustQuestion(t, models.Multiple, "Pick", &models.MultipleContent{
		Options:       []string{"only one"},
		CorrectAnswer: 0,
	})
	q := mustQuestion(t, models.Audio, "", &models.AudioContent{
		AudioURL:     "https://cdn.example.com/clip.mp3",
		SubQuestions: []models.Question{sub},
	})

	report := v.ValidateQuestion(&q)
	assert.Contains(t, errorFields(report), "question.sub_questions[1].options")
}

func TestValidateTestKeysByQuestionNumber(t *testing.T) {
	v := NewQuestionValidator()

	good := mustQuestion(t, models.TrueFalse, "ok", &models.TrueFalseContent{})
	bad := mustQuestion(t, models.Text, "ok", &models.TextContent{})
	test := &models.Test{Questions: []models.Question{good, bad}}

	report := v.ValidateTest(test)
	assert.False(t, report.Valid())
	assert.Contains(t, errorFields(report), "questions[2].correct_answer")
}
