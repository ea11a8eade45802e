package models

import (
	"encoding/json"
	"fmt"
)

// Per-variant student answer shapes. An answer travels as raw JSON (one
// blob per question, keyed by question order) and is decoded against the
// question's type; DecodeAnswer is the single place that mapping lives.

type MultipleAnswer struct {
	// SelectedIndex is nil while unanswered so index 0 stays selectable.
	SelectedIndex *int `json:"selected_index"`
}

type TextAnswer struct {
	Text string `json:"text"`
}

type TrueFalseAnswer struct {
	Answer *bool `json:"answer"`
}

type WordBankAnswer struct {
	// Selections maps blankId -> chosen word; empty string means the
	// "no selection" option.
	Selections map[string]string `json:"selections"`
}

type MatchedPair struct {
	Left    string `json:"left"`
	Right   string `json:"right"`
	Correct bool   `json:"correct"`
}

type MatchingAnswer struct {
	MatchedPairs []MatchedPair `json:"matched_pairs"`
	MatchedCount int           `json:"matched_count"` // committed pairs, right or wrong
	Total        int           `json:"total"`
	// ErrorPair is reserved for a lock-on-mistake mode; nothing assigns it.
	ErrorPair *MatchedPair `json:"error_pair,omitempty"`
}

type AudioAnswer struct {
	// SubAnswers maps sub-question index -> that sub-question's answer,
	// encoded per its own variant.
	SubAnswers map[int]json.RawMessage `json:"sub_answers"`
}

// AnswerSet is a student's full answer state for one attempt: one raw blob
// per question index. Missing keys mean "not yet answered".
type AnswerSet map[int]json.RawMessage

// DecodeAnswer unmarshals a raw answer blob against a question's variant.
// A nil/empty blob decodes to the variant's zero answer (unanswered).
func DecodeAnswer(t QuestionType, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch t {
	case Multiple:
		var a MultipleAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid multiple answer: %w", err)
		}
		return &a, nil
	case Text:
		var a TextAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid text answer: %w", err)
		}
		return &a, nil
	case TrueFalse:
		var a TrueFalseAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid true/false answer: %w", err)
		}
		return &a, nil
	case WordBank:
		var a WordBankAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid word bank answer: %w", err)
		}
		if a.Selections == nil {
			a.Selections = map[string]string{}
		}
		return &a, nil
	case Matching:
		var a MatchingAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid matching answer: %w", err)
		}
		return &a, nil
	case Audio:
		var a AudioAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("invalid audio answer: %w", err)
		}
		if a.SubAnswers == nil {
			a.SubAnswers = map[int]json.RawMessage{}
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("unsupported question type: %s", t)
	}
}

// EncodeAnswer is the inverse of DecodeAnswer.
func EncodeAnswer(answer interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answer: %w", err)
	}
	return raw, nil
}
