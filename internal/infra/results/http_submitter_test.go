package results

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-session-engine/internal/domain"
)

func TestHTTPSubmitterPostsResult(t *testing.T) {
	var got domain.Result
	var idempotencyKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		idempotencyKey = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, 5*time.Second)
	result := domain.Result{
		AttemptID: "a1",
		UserID:    "u1",
		QuizID:    "quiz-1",
		Score:     2,
		Total:     3,
		Answers:   map[string]string{"q1": "A", "q2": "X", "q3": "C"},
	}
	if err := submitter.Submit(context.Background(), result); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got.AttemptID != "a1" || got.Score != 2 || got.Total != 3 {
		t.Fatalf("backend received %+v", got)
	}
	if got.Answers["q2"] != "X" {
		t.Fatalf("answers not forwarded: %+v", got.Answers)
	}
	if idempotencyKey != "a1" {
		t.Fatalf("expected attempt id as idempotency key, got %q", idempotencyKey)
	}
}

func TestHTTPSubmitterRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, 5*time.Second)
	if err := submitter.Submit(context.Background(), domain.Result{AttemptID: "a1"}); err == nil {
		t.Fatalf("expected error on 500")
	}
}
