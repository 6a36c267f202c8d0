package engine

import (
	"sync"

	"quiz-session-engine/internal/domain"
)

// Attempt is the timer/progression state machine for one quiz run. All state
// mutation happens under a single mutex, so an answer and a tick can never
// interleave: whichever event takes the lock first wins and the other sees
// the already-advanced state.
type Attempt struct {
	mu         sync.Mutex
	id         string
	quizID     string
	userID     string
	questions  []domain.Question
	order      []string
	state      domain.AttemptState
	phase      domain.Phase
	submitting bool
	onComplete func(score int)
}

// New builds an attempt over an already-shuffled question list. A non-nil
// resumed state puts the attempt straight back where the snapshot left it;
// otherwise the attempt waits for terms acceptance. onComplete may be nil;
// when set it fires exactly once, on the transition into PhaseComplete.
func New(id, quizID, userID string, questions []domain.Question, order []string, resumed *domain.AttemptState, onComplete func(score int)) *Attempt {
	a := &Attempt{
		id:         id,
		quizID:     quizID,
		userID:     userID,
		questions:  questions,
		order:      order,
		phase:      domain.PhaseAwaitingTerms,
		onComplete: onComplete,
	}
	a.state.Answers = make(map[string]string)

	if resumed != nil {
		a.state = *resumed
		if a.state.Answers == nil {
			a.state.Answers = make(map[string]string)
		}
		switch {
		case a.state.Complete || a.state.CurrentIndex >= len(questions):
			a.state.Complete = true
			a.state.CurrentIndex = len(questions)
			a.phase = domain.PhaseComplete
		case a.state.CurrentIndex == 0 && a.state.TimeRemaining == 0:
			// Snapshot taken before terms were accepted: the countdown was
			// never armed, so the attempt has not started.
			a.phase = domain.PhaseAwaitingTerms
		default:
			a.phase = domain.PhaseRunning
			if a.state.TimeRemaining < 0 {
				a.state.TimeRemaining = 0
			}
		}
	}
	return a
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string { return a.id }

// QuizID returns the question set this attempt runs against.
func (a *Attempt) QuizID() string { return a.quizID }

// UserID returns the owner of this attempt.
func (a *Attempt) UserID() string { return a.userID }

// Start moves the attempt from AwaitingTerms to Running once the user has
// accepted the terms. Starting an already-running attempt is a no-op.
func (a *Attempt) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.phase {
	case domain.PhaseComplete:
		return domain.ErrAttemptComplete
	case domain.PhaseRunning:
		return nil
	}
	if len(a.questions) == 0 {
		return domain.ErrNoQuestions
	}
	a.state.TimeRemaining = a.questions[0].TimeLimit()
	a.phase = domain.PhaseRunning
	return nil
}

// Answer records the selected option for the current question, scores it and
// advances. done reports entry into PhaseComplete.
func (a *Attempt) Answer(selected string) (done bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.phase {
	case domain.PhaseAwaitingTerms:
		return false, domain.ErrTermsNotAccepted
	case domain.PhaseComplete:
		return true, domain.ErrAttemptComplete
	}
	return a.advanceLocked(selected), nil
}

// Tick consumes one second of the current question's countdown. When the
// countdown is exhausted the question times out: the NoAnswer sentinel is
// recorded and the attempt advances exactly as for a wrong answer. Ticks
// outside PhaseRunning are ignored, which makes a tick that raced a final
// answer harmless. advanced reports that the attempt moved to a new question
// or completed.
func (a *Attempt) Tick() (advanced, done bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != domain.PhaseRunning {
		return false, a.phase == domain.PhaseComplete
	}
	if a.state.TimeRemaining > 0 {
		a.state.TimeRemaining--
		if a.state.TimeRemaining > 0 {
			return false, false
		}
	}
	// A resumed snapshot can arrive with zero seconds left; either way the
	// question is over.
	return true, a.advanceLocked(domain.NoAnswer)
}

// advanceLocked writes the answer entry for the current question, updates the
// score and moves to the next question or into PhaseComplete. Answers are
// write-once by construction: the index advances in the same critical section.
func (a *Attempt) advanceLocked(selected string) bool {
	current := a.questions[a.state.CurrentIndex]
	a.state.Answers[current.ID] = selected
	if selected != domain.NoAnswer && selected == current.CorrectAnswer {
		a.state.Score++
	}
	a.state.CurrentIndex++

	if a.state.CurrentIndex < len(a.questions) {
		a.state.TimeRemaining = a.questions[a.state.CurrentIndex].TimeLimit()
		return false
	}

	a.state.TimeRemaining = 0
	a.state.Complete = true
	a.phase = domain.PhaseComplete
	if a.onComplete != nil {
		cb := a.onComplete
		a.onComplete = nil
		cb(a.state.Score)
	}
	return true
}

// BeginSubmit claims the one-shot right to report this attempt's result.
// The first caller gets true; re-renders of the complete view get false.
func (a *Attempt) BeginSubmit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != domain.PhaseComplete || a.submitting {
		return false
	}
	a.submitting = true
	return true
}

// Result builds the final report for the results backend.
func (a *Attempt) Result() domain.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	answers := make(map[string]string, len(a.state.Answers))
	for id, selected := range a.state.Answers {
		answers[id] = selected
	}
	return domain.Result{
		AttemptID: a.id,
		UserID:    a.userID,
		QuizID:    a.quizID,
		Score:     a.state.Score,
		Total:     len(a.questions),
		Answers:   answers,
	}
}

// Snapshot returns the persistable (order, state) pair.
func (a *Attempt) Snapshot() domain.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	state := a.state
	state.Answers = make(map[string]string, len(a.state.Answers))
	for id, selected := range a.state.Answers {
		state.Answers[id] = selected
	}
	return domain.Snapshot{
		AttemptID: a.id,
		QuizID:    a.quizID,
		Order:     append([]string(nil), a.order...),
		State:     state,
	}
}

// View returns the renderable state of the attempt.
func (a *Attempt) View() domain.View {
	a.mu.Lock()
	defer a.mu.Unlock()

	view := domain.View{
		Phase:      a.phase,
		FinalScore: a.state.Score,
		Total:      len(a.questions),
	}
	if a.phase != domain.PhaseRunning {
		return view
	}

	current := a.questions[a.state.CurrentIndex]
	view.Question = &domain.QuestionView{
		ID:      current.ID,
		Prompt:  current.Prompt,
		Options: append([]string(nil), current.Options...),
		Index:   a.state.CurrentIndex,
		Total:   len(a.questions),
	}
	view.TimeRemaining = a.state.TimeRemaining
	return view
}
