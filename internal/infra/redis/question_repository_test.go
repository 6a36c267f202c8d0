package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string]domain.QuestionSet{
			"quiz-1": sampleSet(),
		}),
	}
	repo := NewQuestionRepository(newClient(mr), loader, time.Minute)

	set, err := repo.GetQuestionSet(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(set.Questions) != 1 || set.Questions[0].CorrectAnswer != "4" {
		t.Fatalf("unexpected set %+v", set)
	}
	if !mr.Exists("quiz:quiz-1:questions") {
		t.Fatalf("expected cache key set")
	}

	// Second call should hit cache, loader not incremented.
	again, err := repo.GetQuestionSet(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get set 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if again.Questions[0].Prompt != set.Questions[0].Prompt {
		t.Fatalf("cached set lost content: %+v", again)
	}
}

func TestQuestionRepositoryPropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuestionRepository(newClient(mr), memory.NewStaticQuestionLoader(nil), time.Minute)
	if _, err := repo.GetQuestionSet(context.Background(), "missing"); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}

type countingLoader struct {
	memory.QuestionLoader
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
