package domain

// DefaultTimeLimitSeconds applies to questions that do not carry their own limit.
const DefaultTimeLimitSeconds = 30

// NoAnswer is the sentinel recorded for a question whose timer ran out.
// Writing an entry for every presented question keeps the answers map at
// exactly currentIndex entries.
const NoAnswer = "__no_answer__"

// Phase describes where an attempt is in its lifecycle.
type Phase string

const (
	// PhaseAwaitingTerms holds until the user confirms the quiz terms.
	PhaseAwaitingTerms Phase = "AWAITING_TERMS"
	// PhaseRunning means questions are being presented and timed.
	PhaseRunning Phase = "RUNNING"
	// PhaseComplete is terminal; it is never left within one attempt.
	PhaseComplete Phase = "COMPLETE"
)

// Question is a single multiple-choice question, immutable once loaded into
// an attempt.
type Question struct {
	ID               string   `json:"id"`
	Prompt           string   `json:"prompt"`
	Options          []string `json:"options"`
	CorrectAnswer    string   `json:"correctAnswer"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"` // defaults to 30 if zero
}

// TimeLimit returns the per-question countdown in seconds.
func (q Question) TimeLimit() int {
	if q.TimeLimitSeconds > 0 {
		return q.TimeLimitSeconds
	}
	return DefaultTimeLimitSeconds
}

// QuestionSet is the pool of questions one attempt draws from.
type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// AttemptState is the mutable progress of one attempt. It is owned
// exclusively by a single engine instance while the attempt runs.
type AttemptState struct {
	CurrentIndex  int               `json:"currentIndex"`
	Score         int               `json:"score"`
	Answers       map[string]string `json:"answers"`
	TimeRemaining int               `json:"timeRemainingSeconds"`
	Complete      bool              `json:"isComplete"`
}

// Snapshot is the persisted (order, state) pair that lets an attempt survive
// a reconnect without handing out a fresh question order.
type Snapshot struct {
	AttemptID string       `json:"attemptId"`
	QuizID    string       `json:"quizId"`
	Order     []string     `json:"order"`
	State     AttemptState `json:"state"`
}

// Result is reported to the results backend when an attempt completes.
type Result struct {
	AttemptID string            `json:"attemptId"`
	UserID    string            `json:"userId"`
	QuizID    string            `json:"quizId"`
	Score     int               `json:"score"`
	Total     int               `json:"total"`
	Answers   map[string]string `json:"answers"`
}

// QuestionView is the renderable form of the current question. The correct
// answer is deliberately absent.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Index   int      `json:"index"`
	Total   int      `json:"total"`
}

// View is the renderable snapshot of an attempt.
type View struct {
	Phase         Phase         `json:"phase"`
	Question      *QuestionView `json:"question,omitempty"`
	TimeRemaining int           `json:"timeRemainingSeconds,omitempty"`
	FinalScore    int           `json:"finalScore"`
	Total         int           `json:"total"`
}
