package http

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/memory"
)

func TestWebSocketAttemptFlow(t *testing.T) {
	submitter := &recordingSubmitter{}
	server, _ := newTestServer(t, submitter, time.Hour)
	defer server.Close()

	conn := dial(t, server, "quiz-1", "u1")
	defer conn.Close()

	typ, payload := readNext(conn, t, "state")
	if payload["phase"] != string(domain.PhaseAwaitingTerms) {
		t.Fatalf("expected AWAITING_TERMS, got %v (%s)", payload["phase"], typ)
	}

	if err := conn.WriteJSON(map[string]any{"type": "acceptTerms"}); err != nil {
		t.Fatalf("write acceptTerms: %v", err)
	}
	_, payload = readNext(conn, t, "state")
	if payload["phase"] != string(domain.PhaseRunning) {
		t.Fatalf("expected RUNNING, got %v", payload["phase"])
	}
	if payload["question"] == nil {
		t.Fatalf("expected current question in running state")
	}

	// Every question in the fixture has "A" as its correct answer.
	for {
		if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"option": "A"}}); err != nil {
			t.Fatalf("write answer: %v", err)
		}
		typ, payload = readNext(conn, t, "")
		if typ == "complete" {
			break
		}
		if typ != "state" {
			t.Fatalf("expected state or complete, got %s", typ)
		}
	}

	if payload["score"] != float64(3) || payload["total"] != float64(3) {
		t.Fatalf("expected 3/3, got %+v", payload)
	}
	if submitter.calls() != 1 {
		t.Fatalf("expected exactly one submission, got %d", submitter.calls())
	}

	_, payload = readNext(conn, t, "redirect")
	if payload["url"] != "/leaderboard" {
		t.Fatalf("expected leaderboard redirect, got %v", payload["url"])
	}
}

func TestWebSocketDeclineRedirects(t *testing.T) {
	submitter := &recordingSubmitter{}
	server, snapshots := newTestServer(t, submitter, time.Hour)
	defer server.Close()

	conn := dial(t, server, "quiz-1", "u1")
	defer conn.Close()

	readNext(conn, t, "state")
	if err := conn.WriteJSON(map[string]any{"type": "declineTerms"}); err != nil {
		t.Fatalf("write declineTerms: %v", err)
	}
	_, payload := readNext(conn, t, "redirect")
	if payload["url"] != "/leaderboard" {
		t.Fatalf("expected leaderboard redirect, got %v", payload["url"])
	}
	if submitter.calls() != 0 {
		t.Fatalf("decline must not submit a result")
	}
	if _, ok := snapshots.Load(context.Background(), "u1"); ok {
		t.Fatalf("decline must clear the snapshot")
	}
}

func TestWebSocketTimeoutCompletesAttempt(t *testing.T) {
	submitter := &recordingSubmitter{}
	server, _ := newTestServerWithQuestions(t, submitter, 2*time.Millisecond, []domain.Question{
		{ID: "q1", Prompt: "only", Options: []string{"A", "B"}, CorrectAnswer: "A", TimeLimitSeconds: 1},
	})
	defer server.Close()

	conn := dial(t, server, "quiz-1", "u1")
	defer conn.Close()

	readNext(conn, t, "state")
	if err := conn.WriteJSON(map[string]any{"type": "acceptTerms"}); err != nil {
		t.Fatalf("write acceptTerms: %v", err)
	}
	readNext(conn, t, "state")

	// One 1-second question with a millisecond tick source: the countdown
	// exhausts on its own and the attempt completes with score 0.
	for {
		typ, payload := readNext(conn, t, "")
		if typ == "tick" {
			continue
		}
		if typ != "complete" {
			t.Fatalf("expected complete, got %s", typ)
		}
		if payload["score"] != float64(0) || payload["total"] != float64(1) {
			t.Fatalf("expected 0/1 on timeout, got %+v", payload)
		}
		break
	}
	if submitter.calls() != 1 {
		t.Fatalf("expected one submission after timeout completion, got %d", submitter.calls())
	}
}

func TestWebSocketUnknownQuizRendersNoQuestions(t *testing.T) {
	server, _ := newTestServer(t, &recordingSubmitter{}, time.Hour)
	defer server.Close()

	conn := dial(t, server, "missing", "u1")
	defer conn.Close()

	_, payload := readNext(conn, t, "error")
	if payload["message"] != "no questions available" {
		t.Fatalf("expected terminal no-questions message, got %v", payload["message"])
	}
}

func newTestServer(t *testing.T, submitter app.ResultSubmitter, tick time.Duration) (*httptest.Server, *memory.SnapshotStore) {
	return newTestServerWithQuestions(t, submitter, tick, []domain.Question{
		{ID: "q1", Prompt: "first", Options: []string{"A", "B"}, CorrectAnswer: "A"},
		{ID: "q2", Prompt: "second", Options: []string{"A", "B"}, CorrectAnswer: "A"},
		{ID: "q3", Prompt: "third", Options: []string{"A", "B"}, CorrectAnswer: "A"},
	})
}

func newTestServerWithQuestions(t *testing.T, submitter app.ResultSubmitter, tick time.Duration, questions []domain.Question) (*httptest.Server, *memory.SnapshotStore) {
	t.Helper()
	snapshots := memory.NewSnapshotStore()
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(map[string]domain.QuestionSet{
		"quiz-1": {ID: "quiz-1", Questions: questions},
	}), time.Minute)
	service := app.NewAttemptServiceWithRand(repo, snapshots, submitter, zap.NewNop(), rand.New(rand.NewSource(1)))
	handler := NewWSHandlerWithTick(service, "/leaderboard", zap.NewNop(), tick)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	return httptest.NewServer(mux), snapshots
}

func dial(t *testing.T, server *httptest.Server, quizID, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?quizId=" + quizID + "&userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

type recordingSubmitter struct {
	mu      sync.Mutex
	results []domain.Result
}

func (r *recordingSubmitter) Submit(_ context.Context, result domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *recordingSubmitter) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}
