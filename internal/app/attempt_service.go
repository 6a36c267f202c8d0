package app

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
)

// SnapshotStore persists attempt snapshots across reconnects (in-memory,
// Redis, etc). Save is best-effort: implementations log failures instead of
// returning them.
type SnapshotStore interface {
	Save(ctx context.Context, userID string, snap domain.Snapshot)
	Load(ctx context.Context, userID string) (domain.Snapshot, bool)
	Clear(ctx context.Context, userID string)
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, quizID string) (domain.QuestionSet, error)
}

// ResultSubmitter reports a completed attempt to the results backend.
type ResultSubmitter interface {
	Submit(ctx context.Context, result domain.Result) error
}

// AttemptService composes the shuffler, the snapshot store and the attempt
// state machine, and owns the one-shot result submission.
type AttemptService struct {
	questions QuestionRepository
	snapshots SnapshotStore
	results   ResultSubmitter
	log       *zap.Logger
	rnd       *rand.Rand
}

func NewAttemptService(questions QuestionRepository, snapshots SnapshotStore, results ResultSubmitter, log *zap.Logger) *AttemptService {
	return &AttemptService{
		questions: questions,
		snapshots: snapshots,
		results:   results,
		log:       log,
	}
}

// NewAttemptServiceWithRand is test-only for deterministic shuffles.
func NewAttemptServiceWithRand(questions QuestionRepository, snapshots SnapshotStore, results ResultSubmitter, log *zap.Logger, rnd *rand.Rand) *AttemptService {
	s := NewAttemptService(questions, snapshots, results, log)
	s.rnd = rnd
	return s
}

// Begin loads the question set and any resumable snapshot for the user and
// builds the attempt. A fresh permutation is persisted immediately so a
// reconnect cannot re-roll the order. onComplete may be nil.
func (s *AttemptService) Begin(ctx context.Context, quizID, userID string, onComplete func(score int)) (*engine.Attempt, error) {
	set, err := s.questions.GetQuestionSet(ctx, quizID)
	if err != nil {
		return nil, err
	}

	var snap *domain.Snapshot
	if saved, ok := s.snapshots.Load(ctx, userID); ok && saved.QuizID == quizID {
		snap = &saved
	}

	ordered, order, resumed := engine.Shuffle(set.Questions, snap, s.rnd)
	if len(ordered) == 0 {
		return nil, domain.ErrNoQuestions
	}

	if resumed {
		attempt := engine.New(snap.AttemptID, quizID, userID, ordered, order, &snap.State, onComplete)
		s.log.Info("attempt resumed",
			zap.String("attemptId", snap.AttemptID),
			zap.String("quizId", quizID),
			zap.String("userId", userID),
			zap.Int("currentIndex", snap.State.CurrentIndex))
		return attempt, nil
	}

	attempt := engine.New(uuid.NewString(), quizID, userID, ordered, order, nil, onComplete)
	s.snapshots.Save(ctx, userID, attempt.Snapshot())
	s.log.Info("attempt created",
		zap.String("attemptId", attempt.ID()),
		zap.String("quizId", quizID),
		zap.String("userId", userID),
		zap.Int("questions", len(ordered)))
	return attempt, nil
}

// Accept confirms the quiz terms and starts the countdown.
func (s *AttemptService) Accept(ctx context.Context, attempt *engine.Attempt) error {
	if err := attempt.Start(); err != nil {
		return err
	}
	s.snapshots.Save(ctx, attempt.UserID(), attempt.Snapshot())
	return nil
}

// Decline abandons the attempt before it starts. The snapshot is dropped so
// a later visit starts clean.
func (s *AttemptService) Decline(ctx context.Context, attempt *engine.Attempt) {
	s.snapshots.Clear(ctx, attempt.UserID())
	s.log.Info("attempt declined",
		zap.String("attemptId", attempt.ID()),
		zap.String("userId", attempt.UserID()))
}

// Answer applies an answer event and persists the new state. done reports
// completion; the caller should then invoke Finish.
func (s *AttemptService) Answer(ctx context.Context, attempt *engine.Attempt, selected string) (done bool, err error) {
	done, err = attempt.Answer(selected)
	if err != nil {
		return done, err
	}
	s.snapshots.Save(ctx, attempt.UserID(), attempt.Snapshot())
	return done, nil
}

// Tick applies one second of countdown. Persistence happens only when the
// attempt advanced; per-second snapshot writes would be pure churn.
func (s *AttemptService) Tick(ctx context.Context, attempt *engine.Attempt) (advanced, done bool) {
	advanced, done = attempt.Tick()
	if advanced {
		s.snapshots.Save(ctx, attempt.UserID(), attempt.Snapshot())
	}
	return advanced, done
}

// FinishOutcome is what the caller renders after completion. SubmitErr is a
// soft signal: the attempt is complete locally regardless.
type FinishOutcome struct {
	Score            int
	Total            int
	SubmitErr        error
	AlreadySubmitted bool
}

// Finish submits the result exactly once per attempt instance. The snapshot
// is cleared only after a successful submission; on failure it is kept so a
// reconnect can retry the submission with the same attempt id.
func (s *AttemptService) Finish(ctx context.Context, attempt *engine.Attempt) FinishOutcome {
	result := attempt.Result()
	outcome := FinishOutcome{Score: result.Score, Total: result.Total}

	if !attempt.BeginSubmit() {
		outcome.AlreadySubmitted = true
		return outcome
	}

	if err := s.results.Submit(ctx, result); err != nil {
		s.log.Warn("result submission failed",
			zap.String("attemptId", result.AttemptID),
			zap.String("userId", result.UserID),
			zap.Error(err))
		outcome.SubmitErr = err
		return outcome
	}

	s.snapshots.Clear(ctx, attempt.UserID())
	s.log.Info("attempt finished",
		zap.String("attemptId", result.AttemptID),
		zap.String("userId", result.UserID),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total))
	return outcome
}
