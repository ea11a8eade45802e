package validator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-engine/internal/models"
)

func rawAnswer(t *testing.T, answer interface{}) json.RawMessage {
	t.Helper()
	raw, err := models.EncodeAnswer(answer)
	require.NoError(t, err)
	return raw
}

func TestAttemptedPerType(t *testing.T) {
	v := NewSubmissionValidator()
	zero := 0
	no := false

	multiple := mustQuestion(t, models.Multiple, "q", &models.MultipleContent{
		Options:       []string{"a", "b"},
		CorrectAnswer: 1,
	})
	text := mustQuestion(t, models.Text, "q", &models.TextContent{CorrectAnswer: "x"})
	trueFalse := mustQuestion(t, models.TrueFalse, "q", &models.TrueFalseContent{CorrectAnswer: true})

	tests := []struct {
		name      string
		question  models.Question
		answer    interface{}
		attempted bool
	}{
		{"multiple index zero counts", multiple, &models.MultipleAnswer{SelectedIndex: &zero}, true},
		{"multiple nil index does not", multiple, &models.MultipleAnswer{}, false},
		{"text non-empty counts", text, &models.TextAnswer{Text: "wrong but present"}, true},
		{"text whitespace does not", text, &models.TextAnswer{Text: "   "}, false},
		{"truefalse false counts", trueFalse, &models.TrueFalseAnswer{Answer: &no}, true},
		{"truefalse nil does not", trueFalse, &models.TrueFalseAnswer{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Attempted(&tt.question, rawAnswer(t, tt.answer))
			require.NoError(t, err)
			assert.Equal(t, tt.attempted, got)
		})
	}
}

func TestAttemptedWordBankNeedsEveryBlank(t *testing.T) {
	v := NewSubmissionValidator()
	q := mustQuestion(t, models.WordBank, "{{blank:b0}} {{blank:b1}}", &models.WordBankContent{
		Bank:           []string{"x", "y"},
		CorrectAnswers: map[string]string{"b0": "x", "b1": "y"},
		NextBlankID:    2,
	})

	partial := rawAnswer(t, &models.WordBankAnswer{Selections: map[string]string{"b0": "x"}})
	got, err := v.Attempted(&q, partial)
	require.NoError(t, err)
	assert.False(t, got)

	// Wrong everywhere is still fully attempted.
	full := rawAnswer(t, &models.WordBankAnswer{Selections: map[string]string{"b0": "y", "b1": "x"}})
	got, err = v.Attempted(&q, full)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestAttemptedMatchingNeedsFullCoverage(t *testing.T) {
	v := NewSubmissionValidator()
	q := mustQuestion(t, models.Matching, "q", &models.MatchingContent{
		Pairs: []models.MatchPair{
			{ID: "p0", Left: "a", Right: "x"},
			{ID: "p1", Left: "b", Right: "y"},
		},
		NextPairID: 2,
	})

	partial := rawAnswer(t, &models.MatchingAnswer{
		MatchedPairs: []models.MatchedPair{{Left: "a", Right: "x", Correct: true}},
		MatchedCount: 1,
		Total:        2,
	})
	got, err := v.Attempted(&q, partial)
	require.NoError(t, err)
	assert.False(t, got)

	// Completeness is coverage, not correctness.
	allWrong := rawAnswer(t, &models.MatchingAnswer{
		MatchedPairs: []models.MatchedPair{
			{Left: "a", Right: "y", Correct: false},
			{Left: "b", Right: "x", Correct: false},
		},
		MatchedCount: 2,
		Total:        2,
	})
	got, err = v.Attempted(&q, allWrong)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestAttemptedAudioNeedsEverySubQuestion(t *testing.T) {
	v := NewSubmissionValidator()
	one := 1
	sub0 := mustQuestion(t, models.Multiple, "q", &models.MultipleContent{
		Options:       []string{"a", "b"},
		CorrectAnswer: 0,
	})
	sub1 := mustQuestion(t, models.Text, "q", &models.TextContent{CorrectAnswer: "x"})
	q := mustQuestion(t, models.Audio, "", &models.AudioContent{
		AudioURL:     "https://cdn.example.com/clip.mp3",
		SubQuestions: []models.Question{sub0, sub1},
	})

	partial := rawAnswer(t, &models.AudioAnswer{SubAnswers: map[int]json.RawMessage{
		0: rawAnswer(t, &models.MultipleAnswer{SelectedIndex: &one}),
	}})
	got, err := v.Attempted(&q, partial)
	require.NoError(t, err)
	assert.False(t, got)

	full := rawAnswer(t, &models.AudioAnswer{SubAnswers: map[int]json.RawMessage{
		0: rawAnswer(t, &models.MultipleAnswer{SelectedIndex: &one}),
		1: rawAnswer(t, &models.TextAnswer{Text: "anything"}),
	}})
	got, err = v.Attempted(&q, full)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIncompleteQuestionsReportsOneBasedNumbers(t *testing.T) {
	v := NewSubmissionValidator()
	one := 1

	questions := []models.Question{
		mustQuestion(t, models.Multiple, "q", &models.MultipleContent{Options: []string{"a", "b"}, CorrectAnswer: 0}),
		mustQuestion(t, models.Text, "q", &models.TextContent{CorrectAnswer: "x"}),
		mustQuestion(t, models.TrueFalse, "q", &models.TrueFalseContent{}),
	}
	answers := models.AnswerSet{
		0: rawAnswer(t, &models.MultipleAnswer{SelectedIndex: &one}),
		// question 2 missing entirely, question 3 unanswered
		2: rawAnswer(t, &models.TrueFalseAnswer{}),
	}

	incomplete, err := v.IncompleteQuestions(questions, answers)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, incomplete)
}

func TestIncompleteQuestionsEmptyWhenAllAttempted(t *testing.T) {
	v := NewSubmissionValidator()
	yes := true

	questions := []models.Question{
		mustQuestion(t, models.TrueFalse, "q", &models.TrueFalseContent{CorrectAnswer: false}),
	}
	answers := models.AnswerSet{
		0: rawAnswer(t, &models.TrueFalseAnswer{Answer: &yes}),
	}

	incomplete, err := v.IncompleteQuestions(questions, answers)
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}
