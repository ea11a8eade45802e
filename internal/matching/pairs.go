package matching

import (
	"fmt"

	"github.com/quizforge/quiz-engine/internal/models"
)

// AddPair appends a pair to a matching question, allocating its id from the
// question's monotonic counter. Ids are never reused after a pair is
// deleted, so session snapshots and cached layouts from earlier edits can
// never silently rebind to a different pair. The pair's own ID field is
// ignored; the allocated id is returned.
func AddPair(q models.Question, pair models.MatchPair) (models.Question, string, error) {
	content, err := q.MatchingContent()
	if err != nil {
		return models.Question{}, "", err
	}

	pair.ID = fmt.Sprintf("p%d", content.NextPairID)
	content.NextPairID++
	content.Pairs = append(content.Pairs, pair)

	if err := q.SetContent(content); err != nil {
		return models.Question{}, "", err
	}
	return q, pair.ID, nil
}

// RemovePair deletes the pair with the given id. The counter is not wound
// back.
func RemovePair(q models.Question, pairID string) (models.Question, error) {
	content, err := q.MatchingContent()
	if err != nil {
		return models.Question{}, err
	}

	for i, p := range content.Pairs {
		if p.ID == pairID {
			content.Pairs = append(content.Pairs[:i], content.Pairs[i+1:]...)
			if err := q.SetContent(content); err != nil {
				return models.Question{}, err
			}
			return q, nil
		}
	}
	return models.Question{}, fmt.Errorf("unknown pair %q in question %d", pairID, q.ID)
}
