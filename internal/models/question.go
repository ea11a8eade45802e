package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	Multiple  QuestionType = "multiple"
	Text      QuestionType = "text"
	TrueFalse QuestionType = "true_false"
	WordBank  QuestionType = "word_bank"
	Matching  QuestionType = "matching"
	Audio     QuestionType = "audio"
)

// QuestionTypes lists every supported variant, in presentation order.
var QuestionTypes = []QuestionType{Multiple, Text, TrueFalse, WordBank, Matching, Audio}

func (t QuestionType) Valid() bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// Question is the tagged-variant question record. Shared fields live on the
// struct; variant-specific fields live in Content as JSONB, decoded through
// DecodeContent into the typed content structs below.
type Question struct {
	ID   uint         `json:"id" gorm:"primaryKey"`
	Type QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`

	// Text may embed {{blank:bN}} markers for word_bank questions.
	Text      string  `json:"text" gorm:"type:text" validate:"required"`
	ImageURL  *string `json:"image_url" gorm:"size:500"`
	SectionID *uint   `json:"section_id" gorm:"index"`

	// Points is the per-unit weight for multiple/text/true_false. For
	// word_bank, matching and audio the weight is derived (one point per
	// blank, pair or sub-question unit); see ScorableUnits.
	Points int `json:"points" gorm:"default:1" validate:"min=1,max=100"`

	TestID uint `json:"test_id" gorm:"index"`
	Order  int  `json:"order" gorm:"default:0"`

	Content datatypes.JSON `json:"content" gorm:"type:jsonb"`
}

func (Question) TableName() string {
	return "questions"
}

// ===== VARIANT CONTENT SCHEMAS =====

type MultipleContent struct {
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"` // index into Options
}

type TextContent struct {
	// Compared trimmed and case-insensitively at scoring time.
	CorrectAnswer string `json:"correct_answer"`
}

type TrueFalseContent struct {
	CorrectAnswer bool `json:"correct_answer"`
}

type WordBankContent struct {
	// Bank order is presentation order; duplicates are allowed.
	Bank []string `json:"bank"`
	// CorrectAnswers maps blankId -> expected word. Key set must stay in
	// bijection with the {{blank:id}} markers embedded in Question.Text.
	CorrectAnswers map[string]string `json:"correct_answers"`
	// NextBlankID is a monotonic counter; ids are never reused after a
	// blank is deleted.
	NextBlankID int `json:"next_blank_id"`
}

type MatchPair struct {
	ID         string  `json:"id"`
	Left       string  `json:"left"`
	Right      string  `json:"right"`
	LeftImage  *string `json:"left_image"`
	RightImage *string `json:"right_image"`
}

type MatchingContent struct {
	Pairs []MatchPair `json:"pairs"`
	// NextPairID is monotonic, same discipline as blank ids.
	NextPairID int `json:"next_pair_id"`
}

type AudioContent struct {
	AudioURL string `json:"audio_url"`
	// SubQuestions may be any variant except audio (one level only).
	SubQuestions []Question `json:"sub_questions"`
}

// ===== CONTENT CODECS =====

// DecodeContent unmarshals Content into the typed struct for the question's
// variant. The returned value is one of *MultipleContent, *TextContent,
// *TrueFalseContent, *WordBankContent, *MatchingContent or *AudioContent.
func (q *Question) DecodeContent() (interface{}, error) {
	raw := []byte(q.Content)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	switch q.Type {
	case Multiple:
		var c MultipleContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("invalid multiple content: %w", err)
		}
		return &c, nil
	case Text:
		var c TextContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("invalid text content: %w", err)
		}
		return &c, nil
	case TrueFalse:
		var c TrueFalseContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("invalid true/false content: %w", err)
		}
		return &c, nil
	case WordBank:
		var c WordBankContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("invalid word bank content: %w", err)
		}
		if c.CorrectAnswers == nil {
			c.CorrectAnswers = map[string]string{}
		}
		return &c, nil
	case Matching:
		var c MatchingContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("invalid matching content: %w", err)
		}
		return &c, nil
	case Audio:
		var c AudioContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("invalid audio content: %w", err)
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unsupported question type: %s", q.Type)
	}
}

// SetContent marshals a typed content struct back into Content.
func (q *Question) SetContent(content interface{}) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal question content: %w", err)
	}
	q.Content = raw
	return nil
}

func (q *Question) WordBankContent() (*WordBankContent, error) {
	if q.Type != WordBank {
		return nil, fmt.Errorf("question %d is %s, not %s", q.ID, q.Type, WordBank)
	}
	c, err := q.DecodeContent()
	if err != nil {
		return nil, err
	}
	return c.(*WordBankContent), nil
}

func (q *Question) MatchingContent() (*MatchingContent, error) {
	if q.Type != Matching {
		return nil, fmt.Errorf("question %d is %s, not %s", q.ID, q.Type, Matching)
	}
	c, err := q.DecodeContent()
	if err != nil {
		return nil, err
	}
	return c.(*MatchingContent), nil
}

func (q *Question) AudioContent() (*AudioContent, error) {
	if q.Type != Audio {
		return nil, fmt.Errorf("question %d is %s, not %s", q.ID, q.Type, Audio)
	}
	c, err := q.DecodeContent()
	if err != nil {
		return nil, err
	}
	return c.(*AudioContent), nil
}

// ===== CONSTRUCTION / TYPE CONVERSION =====

// DefaultContent returns an empty, variant-correct content value for a type.
func DefaultContent(t QuestionType) interface{} {
	switch t {
	case Multiple:
		return &MultipleContent{Options: []string{}}
	case Text:
		return &TextContent{}
	case TrueFalse:
		return &TrueFalseContent{}
	case WordBank:
		return &WordBankContent{Bank: []string{}, CorrectAnswers: map[string]string{}}
	case Matching:
		return &MatchingContent{Pairs: []MatchPair{}}
	case Audio:
		return &AudioContent{SubQuestions: []Question{}}
	default:
		return nil
	}
}

// NewQuestion builds a variant-correct default instance.
func NewQuestion(t QuestionType, text string) (Question, error) {
	if !t.Valid() {
		return Question{}, fmt.Errorf("unsupported question type: %s", t)
	}
	q := Question{Type: t, Text: text, Points: 1}
	if err := q.SetContent(DefaultContent(t)); err != nil {
		return Question{}, err
	}
	return q, nil
}

// ConvertType changes a question's variant, preserving the shared fields
// (text, image, section) and discarding variant-specific content that no
// longer applies. Blank markers embedded in the text are meaningless for
// non-wordbank types but are left in place for the author to clean up.
func ConvertType(q Question, t QuestionType) (Question, error) {
	if !t.Valid() {
		return Question{}, fmt.Errorf("unsupported question type: %s", t)
	}
	if q.Type == t {
		return q, nil
	}
	q.Type = t
	if err := q.SetContent(DefaultContent(t)); err != nil {
		return Question{}, err
	}
	return q, nil
}

// ===== DERIVED POINT WEIGHT =====

// ScorableUnits is the question's contribution to a test's maximum score:
// one unit per blank, one per pair, the recursive sum for audio, and one
// for every simple variant. Authors never set this directly for compound
// kinds.
func (q *Question) ScorableUnits() (int, error) {
	switch q.Type {
	case Multiple, Text, TrueFalse:
		return 1, nil
	case WordBank:
		c, err := q.WordBankContent()
		if err != nil {
			return 0, err
		}
		return len(c.CorrectAnswers), nil
	case Matching:
		c, err := q.MatchingContent()
		if err != nil {
			return 0, err
		}
		return len(c.Pairs), nil
	case Audio:
		c, err := q.AudioContent()
		if err != nil {
			return 0, err
		}
		total := 0
		for i := range c.SubQuestions {
			units, err := c.SubQuestions[i].ScorableUnits()
			if err != nil {
				return 0, err
			}
			total += units
		}
		return total, nil
	default:
		return 0, fmt.Errorf("unsupported question type: %s", q.Type)
	}
}
