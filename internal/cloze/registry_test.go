package cloze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-engine/internal/models"
)

func newWordBankQuestion(t *testing.T, text string) models.Question {
	t.Helper()
	q, err := models.NewQuestion(models.WordBank, text)
	require.NoError(t, err)
	return q
}

func TestInsertBlank(t *testing.T) {
	q := newWordBankQuestion(t, "The sky is  today")

	q, blankID, err := InsertBlank(q, 11)
	require.NoError(t, err)
	assert.Equal(t, "b0", blankID)
	assert.Equal(t, "The sky is {{blank:b0}} today", q.Text)

	content, err := q.WordBankContent()
	require.NoError(t, err)
	assert.Equal(t, 1, content.NextBlankID)
	assert.Contains(t, content.CorrectAnswers, "b0")
	assert.Equal(t, "", content.CorrectAnswers["b0"])
}

func TestInsertBlankIDsAreNeverReused(t *testing.T) {
	q := newWordBankQuestion(t, "")

	q, first, err := InsertBlank(q, 0)
	require.NoError(t, err)
	q, err = RemoveBlank(q, first)
	require.NoError(t, err)

	_, second, err := InsertBlank(q, 0)
	require.NoError(t, err)
	assert.Equal(t, "b0", first)
	assert.Equal(t, "b1", second)
}

func TestInsertBlankClampsPosition(t *testing.T) {
	q := newWordBankQuestion(t, "short")

	q, _, err := InsertBlank(q, 100)
	require.NoError(t, err)
	assert.Equal(t, "short{{blank:b0}}", q.Text)

	q, _, err = InsertBlank(q, -5)
	require.NoError(t, err)
	assert.Equal(t, "{{blank:b1}}short{{blank:b0}}", q.Text)
}

func TestInsertBlankSnapsToRuneBoundary(t *testing.T) {
	q := newWordBankQuestion(t, "héllo")

	// Byte 2 is inside the two-byte é; the marker must not split it.
	q, _, err := InsertBlank(q, 2)
	require.NoError(t, err)
	assert.Equal(t, "h{{blank:b0}}éllo", q.Text)
}

func TestRemoveBlankKeepsBijection(t *testing.T) {
	q := newWordBankQuestion(t, "")
	q, a, err := InsertBlank(q, 0)
	require.NoError(t, err)
	q, b, err := InsertBlank(q, len(q.Text))
	require.NoError(t, err)

	q, err = RemoveBlank(q, a)
	require.NoError(t, err)

	assert.Equal(t, []string{b}, BlankIDs(q.Text))
	content, err := q.WordBankContent()
	require.NoError(t, err)
	assert.NotContains(t, content.CorrectAnswers, a)
	assert.Contains(t, content.CorrectAnswers, b)
}

func TestRemoveBlankUnknown(t *testing.T) {
	q := newWordBankQuestion(t, "")
	_, err := RemoveBlank(q, "b9")
	assert.Error(t, err)
}

func TestBankWordOperations(t *testing.T) {
	q := newWordBankQuestion(t, "")

	q, err := AddBankWord(q, "blue")
	require.NoError(t, err)
	q, err = AddBankWord(q, "green")
	require.NoError(t, err)
	q, err = AddBankWord(q, "blue")
	require.NoError(t, err)

	content, err := q.WordBankContent()
	require.NoError(t, err)
	assert.Equal(t, []string{"blue", "green", "blue"}, content.Bank)

	// Removing takes one occurrence only.
	q, err = RemoveBankWord(q, "blue")
	require.NoError(t, err)
	content, err = q.WordBankContent()
	require.NoError(t, err)
	assert.Equal(t, []string{"green", "blue"}, content.Bank)

	_, err = RemoveBankWord(q, "red")
	assert.Error(t, err)
}

func TestSetBlankAnswer(t *testing.T) {
	q := newWordBankQuestion(t, "")
	q, blankID, err := InsertBlank(q, 0)
	require.NoError(t, err)

	// The word does not have to be a bank member yet.
	q, err = SetBlankAnswer(q, blankID, "blue")
	require.NoError(t, err)

	content, err := q.WordBankContent()
	require.NoError(t, err)
	assert.Equal(t, "blue", content.CorrectAnswers[blankID])

	_, err = SetBlankAnswer(q, "b9", "blue")
	assert.Error(t, err)
}

func TestRemoveBankWordLeavesDanglingAnswer(t *testing.T) {
	q := newWordBankQuestion(t, "")
	q, blankID, err := InsertBlank(q, 0)
	require.NoError(t, err)
	q, err = AddBankWord(q, "blue")
	require.NoError(t, err)
	q, err = SetBlankAnswer(q, blankID, "blue")
	require.NoError(t, err)

	q, err = RemoveBankWord(q, "blue")
	require.NoError(t, err)

	findings, err := Inconsistencies(q)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, AnswerNotInBank, findings[0].Kind)
	assert.Equal(t, blankID, findings[0].BlankID)
	assert.Equal(t, "blue", findings[0].Word)
}

func TestInconsistencies(t *testing.T) {
	q := newWordBankQuestion(t, "{{blank:b0}} and {{blank:b7}}")
	content, err := q.WordBankContent()
	require.NoError(t, err)
	content.Bank = []string{"blue"}
	content.CorrectAnswers = map[string]string{
		"b0": "blue", // fine
		"b3": "blue", // answer without marker
	}
	require.NoError(t, q.SetContent(content))

	findings, err := Inconsistencies(q)
	require.NoError(t, err)

	kinds := map[InconsistencyKind][]string{}
	for _, f := range findings {
		kinds[f.Kind] = append(kinds[f.Kind], f.BlankID)
	}
	assert.Equal(t, []string{"b7"}, kinds[OrphanBlank])
	assert.Equal(t, []string{"b3"}, kinds[OrphanAnswer])
	assert.Empty(t, kinds[UnassignedBlank])
}

func TestInconsistenciesUnassignedBlank(t *testing.T) {
	q := newWordBankQuestion(t, "")
	q, blankID, err := InsertBlank(q, 0)
	require.NoError(t, err)

	findings, err := Inconsistencies(q)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, UnassignedBlank, findings[0].Kind)
	assert.Equal(t, blankID, findings[0].BlankID)
}

func TestRenderForStudent(t *testing.T) {
	q := newWordBankQuestion(t, "")
	q, b0, err := InsertBlank(q, 0)
	require.NoError(t, err)
	q.Text = "The sky is " + Placeholder(b0) + " today"
	q, err = AddBankWord(q, "blue")
	require.NoError(t, err)
	q, err = AddBankWord(q, "green")
	require.NoError(t, err)

	answer := models.WordBankAnswer{Selections: map[string]string{b0: "green"}}
	tokens, err := RenderForStudent(q, answer)
	require.NoError(t, err)

	require.Len(t, tokens, 3)
	assert.Equal(t, TokenText, tokens[0].Kind)
	assert.Equal(t, "The sky is ", tokens[0].Text)

	require.Equal(t, TokenBlank, tokens[1].Kind)
	require.NotNil(t, tokens[1].Dropdown)
	assert.Equal(t, b0, tokens[1].Dropdown.BlankID)
	assert.Equal(t, []string{NoSelection, "blue", "green"}, tokens[1].Dropdown.Options)
	assert.Equal(t, "green", tokens[1].Dropdown.Selected)

	assert.Equal(t, TokenText, tokens[2].Kind)
	assert.Equal(t, " today", tokens[2].Text)
}

func TestRenderForStudentNoPriorAnswer(t *testing.T) {
	q := newWordBankQuestion(t, "")
	q, b0, err := InsertBlank(q, 0)
	require.NoError(t, err)

	tokens, err := RenderForStudent(q, models.WordBankAnswer{})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, NoSelection, tokens[0].Dropdown.Selected)
	assert.Equal(t, b0, tokens[0].Dropdown.BlankID)
}
