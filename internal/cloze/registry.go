// Package cloze maintains the blanks embedded in a word-bank question's
// body text: blank identity, the shared word bank and the per-blank correct
// answer map. Every operation takes a question value and returns an updated
// copy, so callers can diff-and-render without the package knowing anything
// about display.
package cloze

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/quizforge/quiz-engine/internal/models"
)

// NoSelection is the dropdown entry meaning "nothing chosen yet".
const NoSelection = ""

var blankPattern = regexp.MustCompile(`\{\{blank:([A-Za-z0-9_-]+)\}\}`)

// Placeholder renders the marker embedded in question text for a blank.
func Placeholder(blankID string) string {
	return "{{blank:" + blankID + "}}"
}

// BlankIDs returns the blank ids embedded in body text, in body order.
func BlankIDs(text string) []string {
	matches := blankPattern.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// InsertBlank allocates a new unique blank id, inserts its placeholder at
// the given byte position in the question text and adds an empty entry to
// the correct-answer map. Ids come from a monotonic per-question counter
// and are never reused after deletion.
func InsertBlank(q models.Question, pos int) (models.Question, string, error) {
	content, err := q.WordBankContent()
	if err != nil {
		return models.Question{}, "", err
	}

	blankID := fmt.Sprintf("b%d", content.NextBlankID)
	content.NextBlankID++
	content.CorrectAnswers[blankID] = ""

	if pos < 0 {
		pos = 0
	}
	if pos > len(q.Text) {
		pos = len(q.Text)
	}
	for pos > 0 && pos < len(q.Text) && !utf8.RuneStart(q.Text[pos]) {
		pos--
	}
	q.Text = q.Text[:pos] + Placeholder(blankID) + q.Text[pos:]

	if err := q.SetContent(content); err != nil {
		return models.Question{}, "", err
	}
	return q, blankID, nil
}

// RemoveBlank deletes a blank's placeholder and its answer entry together,
// keeping the marker/answer bijection intact.
func RemoveBlank(q models.Question, blankID string) (models.Question, error) {
	content, err := q.WordBankContent()
	if err != nil {
		return models.Question{}, err
	}
	if _, ok := content.CorrectAnswers[blankID]; !ok {
		return models.Question{}, fmt.Errorf("unknown blank %q in question %d", blankID, q.ID)
	}

	delete(content.CorrectAnswers, blankID)
	q.Text = strings.Replace(q.Text, Placeholder(blankID), "", 1)

	if err := q.SetContent(content); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// AddBankWord appends a candidate word. Duplicates are allowed; bank order
// is presentation order.
func AddBankWord(q models.Question, word string) (models.Question, error) {
	content, err := q.WordBankContent()
	if err != nil {
		return models.Question{}, err
	}
	content.Bank = append(content.Bank, word)
	if err := q.SetContent(content); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// RemoveBankWord removes one occurrence of a word from the bank. Blanks
// whose correct answer was that word keep pointing at it: the dangling
// reference is detected by Inconsistencies and surfaced at save time, not
// auto-fixed here.
func RemoveBankWord(q models.Question, word string) (models.Question, error) {
	content, err := q.WordBankContent()
	if err != nil {
		return models.Question{}, err
	}
	for i, w := range content.Bank {
		if w == word {
			content.Bank = append(content.Bank[:i], content.Bank[i+1:]...)
			if err := q.SetContent(content); err != nil {
				return models.Question{}, err
			}
			return q, nil
		}
	}
	return models.Question{}, fmt.Errorf("word %q is not in the bank of question %d", word, q.ID)
}

// SetBlankAnswer records the expected word for one blank. The word need not
// be a bank member at call time (a later bank edit may still add it); the
// final state is checked by save-time validation.
func SetBlankAnswer(q models.Question, blankID, word string) (models.Question, error) {
	content, err := q.WordBankContent()
	if err != nil {
		return models.Question{}, err
	}
	if _, ok := content.CorrectAnswers[blankID]; !ok {
		return models.Question{}, fmt.Errorf("unknown blank %q in question %d", blankID, q.ID)
	}
	content.CorrectAnswers[blankID] = word
	if err := q.SetContent(content); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// ===== CONSISTENCY =====

type InconsistencyKind string

const (
	AnswerNotInBank InconsistencyKind = "answer_not_in_bank"
	OrphanBlank     InconsistencyKind = "orphan_blank"  // marker without answer entry
	OrphanAnswer    InconsistencyKind = "orphan_answer" // answer entry without marker
	UnassignedBlank InconsistencyKind = "unassigned_blank"
)

type Inconsistency struct {
	Kind    InconsistencyKind `json:"kind"`
	BlankID string            `json:"blank_id"`
	Word    string            `json:"word,omitempty"`
}

// Inconsistencies reports non-fatal word-bank findings: blanks whose answer
// left the bank, markers or answers that lost their counterpart (possible
// on data loaded from outside the registry), and blanks with no answer
// assigned yet. Findings are surfaced by save-time validation and logged,
// never thrown.
func Inconsistencies(q models.Question) ([]Inconsistency, error) {
	content, err := q.WordBankContent()
	if err != nil {
		return nil, err
	}

	inBank := make(map[string]bool, len(content.Bank))
	for _, w := range content.Bank {
		inBank[w] = true
	}

	var findings []Inconsistency
	embedded := map[string]bool{}
	for _, id := range BlankIDs(q.Text) {
		embedded[id] = true
		if _, ok := content.CorrectAnswers[id]; !ok {
			findings = append(findings, Inconsistency{Kind: OrphanBlank, BlankID: id})
		}
	}
	for id, word := range content.CorrectAnswers {
		if !embedded[id] {
			findings = append(findings, Inconsistency{Kind: OrphanAnswer, BlankID: id})
		}
		switch {
		case word == "":
			findings = append(findings, Inconsistency{Kind: UnassignedBlank, BlankID: id})
		case !inBank[word]:
			findings = append(findings, Inconsistency{Kind: AnswerNotInBank, BlankID: id, Word: word})
		}
	}
	return findings, nil
}

// ===== STUDENT PROJECTION =====

type TokenKind string

const (
	TokenText  TokenKind = "text"
	TokenBlank TokenKind = "blank"
)

type Dropdown struct {
	BlankID string `json:"blank_id"`
	// Options is the full option set in presentation order: the
	// no-selection entry first, then the bank.
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
}

type Token struct {
	Kind     TokenKind `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Dropdown *Dropdown `json:"dropdown,omitempty"`
}

// RenderForStudent projects the question body into an ordered sequence of
// text segments and blank dropdowns, each dropdown pre-selected with the
// student's prior choice if present.
func RenderForStudent(q models.Question, answer models.WordBankAnswer) ([]Token, error) {
	content, err := q.WordBankContent()
	if err != nil {
		return nil, err
	}

	options := make([]string, 0, len(content.Bank)+1)
	options = append(options, NoSelection)
	options = append(options, content.Bank...)

	var tokens []Token
	rest := q.Text
	for {
		loc := blankPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		if loc[0] > 0 {
			tokens = append(tokens, Token{Kind: TokenText, Text: rest[:loc[0]]})
		}
		blankID := rest[loc[2]:loc[3]]
		tokens = append(tokens, Token{
			Kind: TokenBlank,
			Dropdown: &Dropdown{
				BlankID:  blankID,
				Options:  options,
				Selected: answer.Selections[blankID],
			},
		})
		rest = rest[loc[1]:]
	}
	if rest != "" {
		tokens = append(tokens, Token{Kind: TokenText, Text: rest})
	}
	return tokens, nil
}
