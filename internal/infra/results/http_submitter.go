package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"quiz-session-engine/internal/domain"
)

// HTTPSubmitter posts completed attempt results to the results backend. The
// attempt id doubles as an idempotency key, so the backend can deduplicate a
// retried submission after a reconnect.
type HTTPSubmitter struct {
	url    string
	client *http.Client
}

func NewHTTPSubmitter(url string, timeout time.Duration) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSubmitter{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, result domain.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", result.AttemptID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submit result: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LogSubmitter is the fallback when no results backend is configured: the
// outcome is only logged. Useful for local development, mirroring the static
// question fallback.
type LogSubmitter struct {
	log *zap.Logger
}

func NewLogSubmitter(log *zap.Logger) *LogSubmitter {
	return &LogSubmitter{log: log}
}

func (s *LogSubmitter) Submit(_ context.Context, result domain.Result) error {
	s.log.Info("attempt result (no results backend configured)",
		zap.String("attemptId", result.AttemptID),
		zap.String("userId", result.UserID),
		zap.String("quizId", result.QuizID),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total))
	return nil
}
