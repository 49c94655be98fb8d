package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"expo-quiz-service/internal/app"
	"expo-quiz-service/internal/domain"
)

// writeWait bounds a single frame write; a client that stops draining its
// socket errors out the writer instead of blocking it forever.
const writeWait = 10 * time.Second

// WSHandler upgrades clients to websockets and streams authoritative quiz
// state. Pushes ride the change feed; a poll ticker independently re-fetches
// so clients converge even when pub/sub drops events.
type WSHandler struct {
	service      *app.Service
	pollInterval time.Duration
	upgrader     websocket.Upgrader
	log          *zap.Logger
}

func NewWSHandler(service *app.Service, pollInterval time.Duration, log *zap.Logger) *WSHandler {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &WSHandler{
		service:      service,
		pollInterval: pollInterval,
		log:          log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	SessionID      string        `json:"sessionId"`
	QuestionID     string        `json:"questionId"`
	SelectedOption domain.Option `json:"selectedOption"`
}

type answerResult struct {
	QuestionID string        `json:"questionId"`
	Selected   domain.Option `json:"selected"`
	Correct    bool          `json:"correct"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type questionView struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	OptionA       string        `json:"optionA"`
	OptionB       string        `json:"optionB"`
	OptionC       string        `json:"optionC"`
	OptionD       string        `json:"optionD"`
	CorrectOption domain.Option `json:"correctOption,omitempty"`
}

type statePayload struct {
	Session     domain.Session     `json:"session"`
	Question    *questionView      `json:"question,omitempty"`
	TimeLeft    int                `json:"timeLeft"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

// ServeWS wires one client into the quiz: register (or reconnect), stream
// state, and accept answer and operator frames.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if _, err := h.service.Register(ctx, userID, displayName); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel, err := h.service.Subscribe(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		// Closing the connection on writer death unblocks the read loop.
		defer conn.Close()
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	// reply drops the frame instead of blocking once the writer is gone, so a
	// client that stalls reads cannot wedge the handler.
	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	go func() {
		defer close(updatesDone)
		ticker := time.NewTicker(h.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
			case <-ticker.C:
				// Poll fallback bounds staleness if a push is dropped.
			case <-closeSignals:
				return
			}
			msg, err := h.stateMessage(ctx)
			if err != nil {
				h.log.Warn("refresh state", zap.Error(err))
				continue
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	if msg, err := h.stateMessage(ctx); err == nil {
		reply(msg)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			h.handleAnswer(ctx, userID, inbound.Payload, reply)
		case "start", "stop", "reset", "openRegistration", "closeRegistration":
			h.handleOperator(ctx, userID, inbound.Type, reply)
		default:
			reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleAnswer(ctx context.Context, userID string, raw json.RawMessage, reply func(outboundMessage[any])) {
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
		return
	}
	answer, err := h.service.SubmitAnswer(ctx, userID, payload.SessionID, payload.QuestionID, payload.SelectedOption)
	if err != nil {
		if isRejection(err) {
			h.log.Debug("answer rejected", zap.String("user", userID), zap.Error(err))
		} else {
			h.log.Warn("answer submit failed", zap.Error(err))
		}
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	reply(outboundMessage[any]{Type: "answerResult", Payload: answerResult{
		QuestionID: answer.QuestionID,
		Selected:   answer.Selected,
		Correct:    answer.Correct,
	}})
}

func (h *WSHandler) handleOperator(ctx context.Context, userID, action string, reply func(outboundMessage[any])) {
	isAdmin, err := h.service.IsAdmin(ctx, userID)
	if err != nil {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if !isAdmin {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: domain.ErrNotAdmin.Error()}})
		return
	}

	switch action {
	case "start":
		_, err = h.service.StartQuiz(ctx)
	case "stop":
		_, err = h.service.StopQuiz(ctx)
	case "reset":
		_, err = h.service.ResetQuiz(ctx)
	case "openRegistration":
		_, err = h.service.SetRegistration(ctx, true)
	case "closeRegistration":
		_, err = h.service.SetRegistration(ctx, false)
	}
	if err != nil {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	// The resulting state frame arrives via the change feed.
}

func (h *WSHandler) stateMessage(ctx context.Context) (outboundMessage[any], error) {
	snap, err := h.service.Snapshot(ctx)
	if err != nil {
		return outboundMessage[any]{}, err
	}
	return outboundMessage[any]{Type: "state", Payload: stateFromSnapshot(snap)}, nil
}

// stateFromSnapshot shapes a snapshot for the wire. The correct option is
// withheld while the question is still open and revealed from results on.
func stateFromSnapshot(snap app.Snapshot) statePayload {
	payload := statePayload{
		Session:     snap.Session,
		TimeLeft:    timeLeftSeconds(snap.Remaining),
		Leaderboard: snap.Leaderboard,
	}
	if snap.Question != nil {
		view := questionView{
			ID:      snap.Question.ID,
			Text:    snap.Question.Text,
			OptionA: snap.Question.OptionA,
			OptionB: snap.Question.OptionB,
			OptionC: snap.Question.OptionC,
			OptionD: snap.Question.OptionD,
		}
		if snap.Session.Phase == domain.PhaseResults || snap.Session.Phase == domain.PhaseFinished {
			view.CorrectOption = snap.Question.CorrectOption
		}
		payload.Question = &view
	}
	return payload
}

// timeLeftSeconds floors the remaining time to whole seconds; -1 means the
// phase has no deadline.
func timeLeftSeconds(remaining time.Duration) int {
	if remaining == app.NotTimed {
		return -1
	}
	return int(remaining / time.Second)
}

// Rejected submissions are participant-visible outcomes, not server faults.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrWrongPhase) ||
		errors.Is(err, domain.ErrWrongQuestion) ||
		errors.Is(err, domain.ErrInvalidOption)
}
