package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuestionDefaults(t *testing.T) {
	for _, qt := range QuestionTypes {
		q, err := NewQuestion(qt, "some text")
		require.NoError(t, err, string(qt))
		assert.Equal(t, qt, q.Type)
		assert.Equal(t, 1, q.Points)

		content, err := q.DecodeContent()
		require.NoError(t, err)
		assert.NotNil(t, content)
	}

	_, err := NewQuestion(QuestionType("essay"), "text")
	assert.Error(t, err)
}

func TestConvertTypePreservesSharedFields(t *testing.T) {
	image := "https://cdn.example.com/diagram.png"
	section := uint(4)

	q, err := NewQuestion(Multiple, "What is shown?")
	require.NoError(t, err)
	q.ImageURL = &image
	q.SectionID = &section
	require.NoError(t, q.SetContent(&MultipleContent{
		Options:       []string{"a", "b"},
		CorrectAnswer: 1,
	}))

	converted, err := ConvertType(q, Text)
	require.NoError(t, err)

	assert.Equal(t, Text, converted.Type)
	assert.Equal(t, "What is shown?", converted.Text)
	assert.Equal(t, &image, converted.ImageURL)
	assert.Equal(t, &section, converted.SectionID)

	// Old variant content is discarded, not carried across.
	content, err := converted.DecodeContent()
	require.NoError(t, err)
	assert.Equal(t, &TextContent{}, content)
}

func TestConvertTypeSameTypeIsNoop(t *testing.T) {
	q, err := NewQuestion(WordBank, "{{blank:b0}}")
	require.NoError(t, err)
	require.NoError(t, q.SetContent(&WordBankContent{
		Bank:           []string{"x"},
		CorrectAnswers: map[string]string{"b0": "x"},
		NextBlankID:    1,
	}))

	same, err := ConvertType(q, WordBank)
	require.NoError(t, err)
	assert.Equal(t, q, same, "converting to the current type keeps content")
}

func TestScorableUnits(t *testing.T) {
	multiple, err := NewQuestion(Multiple, "q")
	require.NoError(t, err)

	wordBank, err := NewQuestion(WordBank, "{{blank:b0}} {{blank:b1}} {{blank:b2}}")
	require.NoError(t, err)
	require.NoError(t, wordBank.SetContent(&WordBankContent{
		Bank:           []string{"x"},
		CorrectAnswers: map[string]string{"b0": "x", "b1": "x", "b2": "x"},
		NextBlankID:    3,
	}))

	matching, err := NewQuestion(Matching, "q")
	require.NoError(t, err)
	require.NoError(t, matching.SetContent(&MatchingContent{
		Pairs: []MatchPair{
			{ID: "p0", Left: "a", Right: "x"},
			{ID: "p1", Left: "b", Right: "y"},
		},
		NextPairID: 2,
	}))

	audio, err := NewQuestion(Audio, "")
	require.NoError(t, err)
	require.NoError(t, audio.SetContent(&AudioContent{
		AudioURL:     "https://cdn.example.com/clip.mp3",
		SubQuestions: []Question{multiple, wordBank},
	}))

	tests := []struct {
		name  string
		q     Question
		units int
	}{
		{"simple variant", multiple, 1},
		{"one per blank", wordBank, 3},
		{"one per pair", matching, 2},
		{"audio sums sub-questions", audio, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := tt.q.ScorableUnits()
			require.NoError(t, err)
			assert.Equal(t, tt.units, units)
		})
	}
}

func TestTestMaxScore(t *testing.T) {
	q1, err := NewQuestion(TrueFalse, "q")
	require.NoError(t, err)
	q2, err := NewQuestion(Matching, "q")
	require.NoError(t, err)
	require.NoError(t, q2.SetContent(&MatchingContent{
		Pairs:      []MatchPair{{ID: "p0", Left: "a", Right: "x"}},
		NextPairID: 1,
	}))

	test := &Test{Questions: []Question{q1, q2}}
	max, err := test.MaxScore()
	require.NoError(t, err)
	assert.Equal(t, 2, max)
}

func TestDecodeAnswerRejectsUnknownType(t *testing.T) {
	_, err := DecodeAnswer(QuestionType("essay"), nil)
	assert.Error(t, err)
}
