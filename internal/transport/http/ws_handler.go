package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"flashcard-quiz-service/internal/app"
	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/report"
)

// HandlerConfig tunes per-connection behaviour.
type HandlerConfig struct {
	// AutoAdvance moves to the next card this long after an answer. Zero disables it.
	AutoAdvance time.Duration
	// MessagesPerSecond limits inbound messages per connection. Zero disables the limit.
	MessagesPerSecond float64
	Burst             int
}

type WSHandler struct {
	service  *app.QuizService
	cfg      HandlerConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, cfg HandlerConfig, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &WSHandler{
		service: service,
		cfg:     cfg,
		logger:  logger,
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
	Response string `json:"response"`
}

type mediaPayload struct {
	Position int `json:"position"`
	Width    int `json:"width"`
	Height   int `json:"height"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type cardChangedPayload struct {
	Position int `json:"position"`
}

type cardEvaluatedPayload struct {
	Position int  `json:"position"`
	Correct  bool `json:"correct"`
}

type sessionCompletePayload struct {
	Score    int `json:"score"`
	MaxScore int `json:"maxScore"`
}

type resultsPayload struct {
	Result    domain.ResultStatement `json:"result"`
	Statement report.Statement       `json:"statement"`
}

// connNotifier forwards session events to the connection's writer.
type connNotifier struct {
	send chan<- outboundMessage[any]
	done <-chan struct{}
}

func (n connNotifier) push(msg outboundMessage[any]) {
	select {
	case n.send <- msg:
	case <-n.done:
	}
}

func (n connNotifier) CardChanged(pos int) {
	n.push(outboundMessage[any]{Type: "cardChanged", Payload: cardChangedPayload{Position: pos}})
}

func (n connNotifier) CardEvaluated(pos int, correct bool) {
	n.push(outboundMessage[any]{Type: "cardEvaluated", Payload: cardEvaluatedPayload{Position: pos, Correct: correct}})
}

func (n connNotifier) SessionComplete(score, maxScore int) {
	n.push(outboundMessage[any]{Type: "sessionComplete", Payload: sessionCompletePayload{Score: score, MaxScore: maxScore}})
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz session per connection.
// A new session needs deckId and userId; sessionId resumes a persisted one.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("sessionId")
	deckID := q.Get("deckId")
	learner := domain.Learner{ID: q.Get("userId"), Name: q.Get("name")}
	if sessionID == "" && (deckID == "" || learner.ID == "") {
		http.Error(w, "missing deckId and userId, or sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := context.WithoutCancel(r.Context())
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	notifier := connNotifier{send: send, done: closeSignals}

	var session *app.Session
	if sessionID != "" {
		session, err = h.service.Resume(ctx, sessionID, notifier)
	} else {
		session, err = h.service.Start(ctx, deckID, learner, notifier)
	}
	if err != nil {
		if !isClientError(err) {
			h.logger.Error("open session", zap.String("deck", deckID), zap.String("session", sessionID), zap.Error(err))
		}
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Leave(ctx, session)

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.String("session", session.ID()), zap.Error(err))
				// keep draining so notifier pushes never block
				for range send {
				}
				return
			}
		}
	}()

	inbound := make(chan inboundMessage)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	advances := make(chan app.AdvanceToken)
	var limiter *rate.Limiter
	if h.cfg.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.Burst)
	}

	notifier.push(h.state(session))

loop:
	for {
		select {
		case msg, ok := <-inbound:
			if !ok {
				break loop
			}
			if limiter != nil && !limiter.Allow() {
				notifier.push(errorMessage("rate limit exceeded"))
				continue
			}
			if h.handle(ctx, session, msg, notifier) {
				h.scheduleAdvance(session, advances, closeSignals)
			}
		case tok := <-advances:
			if h.service.FireAdvance(ctx, session, tok) {
				notifier.push(h.state(session))
			}
		}
	}

	close(closeSignals)
	_ = conn.Close()
	<-readerDone
	close(send)
	<-writerDone
}

// handle applies one inbound message. It reports whether an answer was
// accepted and the session should move on by itself.
func (h *WSHandler) handle(ctx context.Context, session *app.Session, msg inboundMessage, n connNotifier) bool {
	switch msg.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			n.push(errorMessage("invalid answer payload"))
			return false
		}
		ev, err := h.service.Answer(ctx, session, payload.Response)
		if err != nil {
			n.push(errorMessage(err.Error()))
			return false
		}
		n.push(h.state(session))
		return ev.Applied && !ev.Complete
	case "next", "previous", "first", "last":
		h.service.Navigate(ctx, session, moves[msg.Type])
	case "reset":
		h.service.Reset(ctx, session)
	case "media":
		var payload mediaPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			n.push(errorMessage("invalid media payload"))
			return false
		}
		h.service.ResolveMedia(ctx, session, payload.Position, payload.Width, payload.Height)
	case "results":
		rs, st := h.service.Results(ctx, session)
		n.push(outboundMessage[any]{Type: "results", Payload: resultsPayload{Result: rs, Statement: st}})
		return false
	case "state":
	default:
		n.push(errorMessage("unsupported message type"))
		return false
	}
	n.push(h.state(session))
	return false
}

func (h *WSHandler) scheduleAdvance(session *app.Session, advances chan<- app.AdvanceToken, done <-chan struct{}) {
	if h.cfg.AutoAdvance <= 0 {
		return
	}
	tok := h.service.ScheduleAdvance(session)
	time.AfterFunc(h.cfg.AutoAdvance, func() {
		select {
		case advances <- tok:
		case <-done:
		}
	})
}

func (h *WSHandler) state(session *app.Session) outboundMessage[any] {
	return outboundMessage[any]{Type: "state", Payload: session.View()}
}

var moves = map[string]app.Move{
	"next":     app.MoveNext,
	"previous": app.MovePrevious,
	"first":    app.MoveFirst,
	"last":     app.MoveLast,
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// isClientError reports whether err is caused by the request rather than the server.
func isClientError(err error) bool {
	return errors.Is(err, domain.ErrDeckNotFound) ||
		errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrEmptyDeck) ||
		errors.Is(err, domain.ErrInvalidOptions)
}
