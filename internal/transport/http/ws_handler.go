package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
)

// WSHandler runs one quiz attempt per WebSocket connection. The handler owns
// the one-second tick source; ticks and inbound answers are consumed by a
// single loop, so only one event mutates the attempt at a time.
type WSHandler struct {
	service        *app.AttemptService
	leaderboardURL string
	tickInterval   time.Duration
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

func NewWSHandler(service *app.AttemptService, leaderboardURL string, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service:        service,
		leaderboardURL: leaderboardURL,
		tickInterval:   time.Second,
		log:            log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// NewWSHandlerWithTick is test-only for fast countdowns.
func NewWSHandlerWithTick(service *app.AttemptService, leaderboardURL string, log *zap.Logger, tick time.Duration) *WSHandler {
	h := NewWSHandler(service, leaderboardURL, log)
	h.tickInterval = tick
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type tickPayload struct {
	TimeRemaining int `json:"timeRemainingSeconds"`
}

type completePayload struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

type redirectPayload struct {
	URL string `json:"url"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and drives one attempt to its outcome.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	attempt, err := h.service.Begin(ctx, quizID, userID, nil)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: beginErrorMessage(err)}})
		return
	}

	// Reader goroutine; the loop below is the only writer on the conn.
	// closed unblocks a reader stuck handing over a message after the loop
	// has already returned.
	inbound := make(chan inboundMessage)
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-closed:
				return
			}
		}
	}()

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	view := attempt.View()
	if err := h.sendState(conn, view); err != nil {
		return
	}
	if view.Phase == domain.PhaseComplete {
		// Resumed an attempt whose submission never went through.
		h.finish(ctx, conn, attempt)
		return
	}

	for {
		select {
		case msg, ok := <-inbound:
			if !ok {
				// Client went away; ticker stops via defer so nothing
				// mutates the attempt after teardown.
				return
			}
			if done := h.handleMessage(ctx, conn, attempt, msg); done {
				return
			}
		case <-ticker.C:
			if attempt.View().Phase != domain.PhaseRunning {
				continue
			}
			advanced, done := h.service.Tick(ctx, attempt)
			if done {
				h.finish(ctx, conn, attempt)
				return
			}
			if advanced {
				if err := h.sendState(conn, attempt.View()); err != nil {
					return
				}
				continue
			}
			remaining := attempt.View().TimeRemaining
			if err := conn.WriteJSON(outboundMessage[tickPayload]{Type: "tick", Payload: tickPayload{TimeRemaining: remaining}}); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound event; done reports that the
// connection should close.
func (h *WSHandler) handleMessage(ctx context.Context, conn *websocket.Conn, attempt *engine.Attempt, msg inboundMessage) bool {
	switch msg.Type {
	case "acceptTerms":
		if err := h.service.Accept(ctx, attempt); err != nil {
			h.sendError(conn, err.Error())
			return false
		}
		return h.sendState(conn, attempt.View()) != nil

	case "declineTerms":
		h.service.Decline(ctx, attempt)
		_ = conn.WriteJSON(outboundMessage[redirectPayload]{Type: "redirect", Payload: redirectPayload{URL: h.leaderboardURL}})
		return true

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.sendError(conn, "invalid answer payload")
			return false
		}
		done, err := h.service.Answer(ctx, attempt, payload.Option)
		if err != nil {
			h.sendError(conn, err.Error())
			return false
		}
		if done {
			h.finish(ctx, conn, attempt)
			return true
		}
		return h.sendState(conn, attempt.View()) != nil

	default:
		h.sendError(conn, "unsupported message type")
		return false
	}
}

// finish reports the outcome, surfaces a failed submission as a warning and
// points the client at the leaderboard.
func (h *WSHandler) finish(ctx context.Context, conn *websocket.Conn, attempt *engine.Attempt) {
	outcome := h.service.Finish(ctx, attempt)
	_ = conn.WriteJSON(outboundMessage[completePayload]{Type: "complete", Payload: completePayload{
		Score: outcome.Score,
		Total: outcome.Total,
	}})
	if outcome.SubmitErr != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "warning", Payload: errorPayload{
			Message: "score could not be reported; it will be retried on your next visit",
		}})
	}
	_ = conn.WriteJSON(outboundMessage[redirectPayload]{Type: "redirect", Payload: redirectPayload{URL: h.leaderboardURL}})
}

func (h *WSHandler) sendState(conn *websocket.Conn, view domain.View) error {
	return conn.WriteJSON(outboundMessage[domain.View]{Type: "state", Payload: view})
}

func (h *WSHandler) sendError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
}

func beginErrorMessage(err error) string {
	if errors.Is(err, domain.ErrNoQuestions) || errors.Is(err, domain.ErrQuestionSetNotFound) {
		return "no questions available"
	}
	return err.Error()
}
