package memory

import (
	"context"
	"testing"
	"time"

	"quiz-session-engine/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[string]domain.QuestionSet{
			"quiz-1": sampleSet(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.GetQuestionSet(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get set: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuestionSet(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get set 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryUnknownSet(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(nil), time.Minute)
	if _, err := repo.GetQuestionSet(context.Background(), "nope"); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, quizID string) (domain.QuestionSet, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestionSet(ctx, quizID)
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "What is 2 + 2?",
				Options:       []string{"3", "4", "5"},
				CorrectAnswer: "4",
			},
		},
	}
}
