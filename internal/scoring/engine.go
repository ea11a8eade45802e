// Package scoring computes earned/maximum points for a set of questions
// and a student's submitted answers. Scoring is a pure function: inputs
// are never mutated and no I/O happens here. Each question type has its
// own strategy; composite audio questions recurse over their sub-questions.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/quizforge/quiz-engine/internal/models"
)

// Result is the outcome of scoring one question or a whole test. Max is
// always the structural unit count, independent of what was attempted.
type Result struct {
	Earned int `json:"earned"`
	Max    int `json:"max"`
}

func (r Result) Add(other Result) Result {
	return Result{Earned: r.Earned + other.Earned, Max: r.Max + other.Max}
}

// Percentage returns earned/max as a percentage rounded to two decimal
// places. A zero-unit test is the degenerate ungraded case: the second
// return is false and no division happens.
func (r Result) Percentage() (float64, bool) {
	if r.Max == 0 {
		return 0, false
	}
	pct := float64(r.Earned) / float64(r.Max) * 100
	return math.Round(pct*100) / 100, true
}

// Strategy scores a single question of one variant.
type Strategy interface {
	Score(q *models.Question, raw json.RawMessage) (Result, error)
}

// Engine routes questions to the strategy for their type.
type Engine struct {
	strategies map[models.QuestionType]Strategy
}

func NewEngine() *Engine {
	e := &Engine{}
	e.strategies = map[models.QuestionType]Strategy{
		models.Multiple:  multipleStrategy{},
		models.Text:      textStrategy{},
		models.TrueFalse: trueFalseStrategy{},
		models.WordBank:  wordBankStrategy{},
		models.Matching:  matchingStrategy{},
		models.Audio:     audioStrategy{engine: e},
	}
	return e
}

// ScoreQuestion scores one question against its raw answer blob. A nil
// blob counts as unanswered: zero earned, full max.
func (e *Engine) ScoreQuestion(q *models.Question, raw json.RawMessage) (Result, error) {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("unsupported question type: %s", q.Type)
	}
	return s.Score(q, raw)
}

// Score reconciles a full question list with an answer set.
func (e *Engine) Score(questions []models.Question, answers models.AnswerSet) (Result, error) {
	total := Result{}
	for i := range questions {
		r, err := e.ScoreQuestion(&questions[i], answers[i])
		if err != nil {
			return Result{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		total = total.Add(r)
	}
	return total, nil
}

// ===== STRATEGIES =====

type multipleStrategy struct{}

func (multipleStrategy) Score(q *models.Question, raw json.RawMessage) (Result, error) {
	res := Result{Max: 1}
	content, answer, err := decode[models.MultipleContent, models.MultipleAnswer](q, raw)
	if err != nil {
		return res, err
	}
	if answer.SelectedIndex != nil && *answer.SelectedIndex == content.CorrectAnswer {
		res.Earned = 1
	}
	return res, nil
}

type textStrategy struct{}

func (textStrategy) Score(q *models.Question, raw json.RawMessage) (Result, error) {
	res := Result{Max: 1}
	content, answer, err := decode[models.TextContent, models.TextAnswer](q, raw)
	if err != nil {
		return res, err
	}
	got := strings.TrimSpace(answer.Text)
	want := strings.TrimSpace(content.CorrectAnswer)
	if got != "" && strings.EqualFold(got, want) {
		res.Earned = 1
	}
	return res, nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Score(q *models.Question, raw json.RawMessage) (Result, error) {
	res := Result{Max: 1}
	content, answer, err := decode[models.TrueFalseContent, models.TrueFalseAnswer](q, raw)
	if err != nil {
		return res, err
	}
	if answer.Answer != nil && *answer.Answer == content.CorrectAnswer {
		res.Earned = 1
	}
	return res, nil
}

type wordBankStrategy struct{}

func (wordBankStrategy) Score(q *models.Question, raw json.RawMessage) (Result, error) {
	content, answer, err := decode[models.WordBankContent, models.WordBankAnswer](q, raw)
	if err != nil {
		return Result{}, err
	}
	res := Result{Max: len(content.CorrectAnswers)}
	for blankID, want := range content.CorrectAnswers {
		if got, ok := answer.Selections[blankID]; ok && got != "" && got == want {
			res.Earned++
		}
	}
	return res, nil
}

type matchingStrategy struct{}

func (matchingStrategy) Score(q *models.Question, raw json.RawMessage) (Result, error) {
	content, answer, err := decode[models.MatchingContent, models.MatchingAnswer](q, raw)
	if err != nil {
		return Result{}, err
	}
	res := Result{Max: len(content.Pairs)}
	for _, m := range answer.MatchedPairs {
		if m.Correct {
			res.Earned++
		}
	}
	if res.Earned > res.Max {
		res.Earned = res.Max
	}
	return res, nil
}

type audioStrategy struct {
	engine *Engine
}

func (s audioStrategy) Score(q *models.Question, raw json.RawMessage) (Result, error) {
	content, answer, err := decode[models.AudioContent, models.AudioAnswer](q, raw)
	if err != nil {
		return Result{}, err
	}

	total := Result{}
	for i := range content.SubQuestions {
		sub := &content.SubQuestions[i]
		if sub.Type == models.Audio {
			return Result{}, fmt.Errorf("audio questions cannot nest audio sub-questions")
		}
		r, err := s.engine.ScoreQuestion(sub, answer.SubAnswers[i])
		if err != nil {
			return Result{}, fmt.Errorf("sub-question %d: %w", i+1, err)
		}
		total = total.Add(r)
	}
	return total, nil
}

// decode unmarshals a question's content and its answer blob into the typed
// pair one strategy works with.
func decode[C any, A any](q *models.Question, raw json.RawMessage) (*C, *A, error) {
	content, err := q.DecodeContent()
	if err != nil {
		return nil, nil, err
	}
	typedContent, ok := content.(*C)
	if !ok {
		return nil, nil, fmt.Errorf("question %d content does not match type %s", q.ID, q.Type)
	}
	answer, err := models.DecodeAnswer(q.Type, raw)
	if err != nil {
		return nil, nil, err
	}
	typedAnswer, ok := answer.(*A)
	if !ok {
		return nil, nil, fmt.Errorf("question %d answer does not match type %s", q.ID, q.Type)
	}
	return typedContent, typedAnswer, nil
}
