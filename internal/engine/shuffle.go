package engine

import (
	"math/rand"
	"time"

	"quiz-session-engine/internal/domain"
)

// Shuffle produces the fixed per-attempt question ordering.
//
// Invalid questions are filtered first. If a resumed snapshot is present and
// its order covers exactly the valid set, the saved ordering is reconstructed
// (ids that no longer resolve are dropped silently); otherwise a fresh
// uniform permutation is drawn. The returned resumed flag reports which path
// was taken.
//
// rnd may be nil, in which case a wall-clock-seeded source is used. Tests
// inject a fixed seed for reproducibility.
func Shuffle(questions []domain.Question, snap *domain.Snapshot, rnd *rand.Rand) (ordered []domain.Question, order []string, resumed bool) {
	valid := validQuestions(questions)
	if len(valid) == 0 {
		return nil, nil, false
	}

	if snap != nil && len(snap.Order) == len(valid) {
		byID := make(map[string]domain.Question, len(valid))
		for _, q := range valid {
			byID[q.ID] = q
		}
		for _, id := range snap.Order {
			q, ok := byID[id]
			if !ok {
				continue
			}
			ordered = append(ordered, q)
			order = append(order, id)
		}
		if len(ordered) > 0 {
			return ordered, order, true
		}
		// Saved order resolved nothing usable; fall through to a fresh draw.
		ordered, order = nil, nil
	}

	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	ordered = make([]domain.Question, 0, len(valid))
	order = make([]string, 0, len(valid))
	for _, i := range rnd.Perm(len(valid)) {
		ordered = append(ordered, valid[i])
		order = append(order, valid[i].ID)
	}
	return ordered, order, false
}

// validQuestions drops questions that cannot be asked: missing id or prompt,
// no options, or no correct answer defined. Correct answers that match none
// of the options are a content problem, not a runtime one, and pass through.
func validQuestions(questions []domain.Question) []domain.Question {
	valid := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.ID == "" || q.Prompt == "" || len(q.Options) == 0 || q.CorrectAnswer == "" {
			continue
		}
		valid = append(valid, q)
	}
	return valid
}
