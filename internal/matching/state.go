// Package matching drives the click-to-pair interaction for a matching
// question, independent of how the two columns are drawn. A Session holds
// the per-attempt state; callers deliver click events and read back answer
// snapshots.
package matching

import (
	"fmt"
	"math/rand"

	"github.com/quizforge/quiz-engine/internal/models"
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Transition names the outcome of a click event.
type Transition string

const (
	TransitionSelect   Transition = "select"
	TransitionDeselect Transition = "deselect"
	TransitionUnpair   Transition = "unpair"
	TransitionCommit   Transition = "commit"
	TransitionNoop     Transition = "noop"
)

// Completion is emitted once all left items are paired.
type Completion struct {
	MatchedCount int
	Total        int
	Pairs        []models.MatchedPair
}

// Session tracks one matching question instance within one attempt.
type Session struct {
	pairs      []models.MatchPair
	leftSet    map[string]bool
	rightSet   map[string]bool
	rightOrder []string

	activeLeft  string
	activeRight string
	matched     []models.MatchedPair

	// errorPair is reserved for a lock-on-mistake mode; no transition
	// assigns it.
	errorPair *models.MatchedPair

	onComplete func(Completion)
	seed       *int64
}

type Option func(*Session)

// WithSeed pins the right-column permutation, used by tests and by callers
// restoring a cached layout.
func WithSeed(seed int64) Option {
	return func(s *Session) { s.seed = &seed }
}

// WithRightOrder restores a previously generated permutation, e.g. one
// cached between requests so the student's spatial memory of the layout
// stays valid.
func WithRightOrder(order []string) Option {
	return func(s *Session) { s.rightOrder = append([]string(nil), order...) }
}

// WithOnComplete registers the completion callback that delivers the final
// pairing to the owning answer.
func WithOnComplete(fn func(Completion)) Option {
	return func(s *Session) { s.onComplete = fn }
}

// State is the serializable snapshot a caller persists between click
// events of the same attempt.
type State struct {
	ActiveLeft  string               `json:"active_left"`
	ActiveRight string               `json:"active_right"`
	Matched     []models.MatchedPair `json:"matched"`
	RightOrder  []string             `json:"right_order"`
}

// WithState restores a previously persisted snapshot.
func WithState(st State) Option {
	return func(s *Session) {
		s.activeLeft = st.ActiveLeft
		s.activeRight = st.ActiveRight
		s.matched = append([]models.MatchedPair(nil), st.Matched...)
		if len(st.RightOrder) > 0 {
			s.rightOrder = append([]string(nil), st.RightOrder...)
		}
	}
}

// NewSession builds a session for a matching question's content. The right
// column display order is a fixed random permutation of all right values,
// generated once and cached for the life of the session.
func NewSession(content *models.MatchingContent, opts ...Option) (*Session, error) {
	if content == nil || len(content.Pairs) == 0 {
		return nil, fmt.Errorf("matching content has no pairs")
	}

	s := &Session{
		pairs:    content.Pairs,
		leftSet:  make(map[string]bool, len(content.Pairs)),
		rightSet: make(map[string]bool, len(content.Pairs)),
	}
	for _, p := range content.Pairs {
		if p.Left == "" || p.Right == "" {
			return nil, fmt.Errorf("matching pair %q is missing a side", p.ID)
		}
		if s.leftSet[p.Left] {
			return nil, fmt.Errorf("duplicate left value %q", p.Left)
		}
		s.leftSet[p.Left] = true
		s.rightSet[p.Right] = true
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rightOrder == nil {
		s.rightOrder = make([]string, len(s.pairs))
		for i, p := range s.pairs {
			s.rightOrder[i] = p.Right
		}
		r := rand.New(rand.NewSource(randSeed(s.seed)))
		r.Shuffle(len(s.rightOrder), func(i, j int) {
			s.rightOrder[i], s.rightOrder[j] = s.rightOrder[j], s.rightOrder[i]
		})
	} else if len(s.rightOrder) != len(s.pairs) {
		return nil, fmt.Errorf("restored right order has %d entries, want %d", len(s.rightOrder), len(s.pairs))
	}

	return s, nil
}

// RightOrder is the cached display permutation of the right column.
func (s *Session) RightOrder() []string {
	return append([]string(nil), s.rightOrder...)
}

// State snapshots the session for persistence between events.
func (s *Session) State() State {
	return State{
		ActiveLeft:  s.activeLeft,
		ActiveRight: s.activeRight,
		Matched:     append([]models.MatchedPair(nil), s.matched...),
		RightOrder:  s.RightOrder(),
	}
}

// Click applies one click event. Unknown values are programmer errors, not
// student states, and fail hard.
func (s *Session) Click(side Side, value string) (Transition, error) {
	switch side {
	case SideLeft:
		return s.clickLeft(value)
	case SideRight:
		return s.clickRight(value)
	default:
		return TransitionNoop, fmt.Errorf("unknown side %q", side)
	}
}

func (s *Session) clickLeft(value string) (Transition, error) {
	if !s.leftSet[value] {
		return TransitionNoop, fmt.Errorf("unknown left item %q", value)
	}

	// Clicking a matched left item unpairs it.
	if idx := s.matchedLeftIndex(value); idx >= 0 {
		s.matched = append(s.matched[:idx], s.matched[idx+1:]...)
		s.activeLeft = ""
		s.activeRight = ""
		return TransitionUnpair, nil
	}

	if s.activeLeft == value {
		s.activeLeft = ""
		return TransitionDeselect, nil
	}

	// Selecting replaces any previous pending left item.
	s.activeLeft = value
	return TransitionSelect, nil
}

func (s *Session) clickRight(value string) (Transition, error) {
	if !s.rightSet[value] {
		return TransitionNoop, fmt.Errorf("unknown right item %q", value)
	}

	if s.activeLeft == "" {
		if s.activeRight == value {
			s.activeRight = ""
			return TransitionDeselect, nil
		}
		if s.matchedRightIndex(value) >= 0 {
			// Already-matched right item with nothing pending: absorbing no-op.
			return TransitionNoop, nil
		}
		s.activeRight = value
		return TransitionSelect, nil
	}

	// Commit: re-pairing the same left overwrites its previous entry.
	before := len(s.matched)
	if idx := s.matchedLeftIndex(s.activeLeft); idx >= 0 {
		s.matched = append(s.matched[:idx], s.matched[idx+1:]...)
	}
	s.matched = append(s.matched, models.MatchedPair{
		Left:    s.activeLeft,
		Right:   value,
		Correct: s.isCorrect(s.activeLeft, value),
	})
	s.activeLeft = ""
	s.activeRight = ""

	if before == len(s.pairs)-1 && len(s.matched) == len(s.pairs) && s.onComplete != nil {
		s.onComplete(Completion{
			MatchedCount: len(s.matched),
			Total:        len(s.pairs),
			Pairs:        append([]models.MatchedPair(nil), s.matched...),
		})
	}
	return TransitionCommit, nil
}

// CorrectCount is derived from the currently committed pairs.
func (s *Session) CorrectCount() int {
	n := 0
	for _, m := range s.matched {
		if m.Correct {
			n++
		}
	}
	return n
}

// Complete reports whether every left item is paired.
func (s *Session) Complete() bool {
	return len(s.matched) == len(s.pairs)
}

// ActiveLeft returns the pending left selection, if any.
func (s *Session) ActiveLeft() (string, bool) {
	return s.activeLeft, s.activeLeft != ""
}

// ActiveRight returns the pending right selection, if any.
func (s *Session) ActiveRight() (string, bool) {
	return s.activeRight, s.activeRight != ""
}

// Answer snapshots the session into the answer shape the validator and
// scorer consume. MatchedCount tracks committed pairs regardless of
// correctness; correctness credit is the scorer's concern.
func (s *Session) Answer() models.MatchingAnswer {
	return models.MatchingAnswer{
		MatchedPairs: append([]models.MatchedPair(nil), s.matched...),
		MatchedCount: len(s.matched),
		Total:        len(s.pairs),
		ErrorPair:    s.errorPair,
	}
}

func (s *Session) matchedLeftIndex(left string) int {
	for i, m := range s.matched {
		if m.Left == left {
			return i
		}
	}
	return -1
}

func (s *Session) matchedRightIndex(right string) int {
	for i, m := range s.matched {
		if m.Right == right {
			return i
		}
	}
	return -1
}

func (s *Session) isCorrect(left, right string) bool {
	for _, p := range s.pairs {
		if p.Left == left && p.Right == right {
			return true
		}
	}
	return false
}

func randSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return rand.Int63()
}
