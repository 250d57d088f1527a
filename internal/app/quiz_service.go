package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flashcard-quiz-service/internal/deck"
	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/metrics"
	"flashcard-quiz-service/internal/report"
)

// SessionRepository persists session snapshots (in-memory, Redis, etc).
type SessionRepository interface {
	Save(ctx context.Context, snap domain.SessionSnapshot) error
	Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// DeckRepository loads deck content (from cache/backing store).
type DeckRepository interface {
	GetDeck(ctx context.Context, deckID string) (domain.Deck, error)
}

// ReportSink receives result statements.
type ReportSink interface {
	Publish(ctx context.Context, st report.Statement) error
}

// Move is a navigation intent.
type Move int

const (
	MoveNext Move = iota
	MovePrevious
	MoveFirst
	MoveLast
)

// ServiceOption customizes a QuizService.
type ServiceOption func(*QuizService)

func WithLogger(l *zap.Logger) ServiceOption            { return func(s *QuizService) { s.logger = l } }
func WithMetrics(m *metrics.Collector) ServiceOption    { return func(s *QuizService) { s.metrics = m } }
func WithClock(now func() time.Time) ServiceOption      { return func(s *QuizService) { s.now = now } }
func WithIDGenerator(f func() string) ServiceOption     { return func(s *QuizService) { s.newID = f } }
func WithActivityBase(base string) ServiceOption        { return func(s *QuizService) { s.activityBase = base } }
func WithDeckOptions(opts ...deck.Option) ServiceOption { return func(s *QuizService) { s.deckOpts = opts } }

// QuizService contains the quiz use cases. Sessions are owned by the caller
// (one per connection); the service persists their snapshots so they can be
// resumed and hands finished results to the report sink.
type QuizService struct {
	sessions SessionRepository
	decks    DeckRepository
	sink     ReportSink

	logger       *zap.Logger
	metrics      *metrics.Collector
	now          func() time.Time
	newID        func() string
	activityBase string
	deckOpts     []deck.Option
}

func NewQuizService(sessions SessionRepository, decks DeckRepository, sink ReportSink, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions: sessions,
		decks:    decks,
		sink:     sink,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is one learner's pass through a deck.
type Session struct {
	id      string
	deckID  string
	learner domain.Learner

	mu   sync.Mutex
	ctrl *Controller
}

// ID returns the session identifier used for resume.
func (s *Session) ID() string { return s.id }

// View is a point-in-time description of a session for the UI.
type View struct {
	SessionID        string           `json:"sessionId"`
	DeckID           string           `json:"deckId"`
	Title            string           `json:"title,omitempty"`
	Phase            string           `json:"phase"`
	Position         int              `json:"position"`
	Total            int              `json:"total"`
	Answered         int              `json:"answered"`
	Score            int              `json:"score"`
	MaxScore         int              `json:"maxScore"`
	Card             CardView         `json:"card"`
	ResultsAvailable bool             `json:"resultsAvailable"`
	State            domain.CardState `json:"state"`
}

// CardView is the displayable part of a card; the answer spec is withheld.
type CardView struct {
	Question string        `json:"question,omitempty"`
	Hint     string        `json:"hint,omitempty"`
	Image    *domain.Media `json:"image,omitempty"`
}

// View describes the session's current card and progress.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	d := s.ctrl.Deck()
	pos := d.Current()
	card := d.Card(pos)
	return View{
		SessionID:        s.id,
		DeckID:           s.deckID,
		Title:            d.Definition().Title,
		Phase:            d.Phase().String(),
		Position:         pos,
		Total:            d.Len(),
		Answered:         d.Answered(),
		Score:            s.ctrl.Score(),
		MaxScore:         s.ctrl.MaxScore(),
		Card:             CardView{Question: card.Question, Hint: card.Hint, Image: card.Image},
		ResultsAvailable: s.ctrl.ResultsAvailable(),
		State:            d.State(pos),
	}
}

// Start builds a new session for deckID. Configuration errors such as an
// empty deck are returned synchronously.
func (q *QuizService) Start(ctx context.Context, deckID string, learner domain.Learner, n Notifier) (*Session, error) {
	def, err := q.decks.GetDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	d, err := deck.New(def, q.deckOpts...)
	if err != nil {
		return nil, err
	}

	session := &Session{
		id:      q.newID(),
		deckID:  deckID,
		learner: learner,
		ctrl:    NewController(d, n),
	}
	q.metrics.SessionStarted()
	q.logger.Info("session started",
		zap.String("session", session.id),
		zap.String("deck", deckID),
		zap.String("learner", learner.ID),
		zap.Int("cards", d.Len()),
	)

	session.mu.Lock()
	q.persistLocked(ctx, session)
	session.mu.Unlock()
	return session, nil
}

// Resume rebuilds a persisted session.
func (q *QuizService) Resume(ctx context.Context, sessionID string, n Notifier) (*Session, error) {
	snap, err := q.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	def, err := q.decks.GetDeck(ctx, snap.DeckID)
	if err != nil {
		return nil, err
	}
	d, err := deck.Restore(def, deck.Snapshot{
		Order:         snap.Order,
		Current:       snap.Current,
		States:        snap.States,
		MediaResolved: snap.MediaResolved,
		Media:         snap.Media,
	}, q.deckOpts...)
	if err != nil {
		return nil, err
	}

	q.logger.Info("session resumed", zap.String("session", sessionID), zap.String("deck", snap.DeckID))
	return &Session{
		id:      snap.SessionID,
		deckID:  snap.DeckID,
		learner: snap.Learner,
		ctrl:    RestoreController(d, n, snap.CompletionSent),
	}, nil
}

// Answer evaluates response for the displayed card. When this completes the
// deck the final statement is published.
func (q *QuizService) Answer(ctx context.Context, s *Session, response string) (domain.Evaluation, error) {
	s.mu.Lock()
	sentBefore := s.ctrl.CompletionSent()
	ev, err := s.ctrl.AnswerCurrentCard(response)
	if err != nil || !ev.Applied {
		s.mu.Unlock()
		return ev, err
	}
	q.metrics.CardEvaluated(ev.Correct)

	var (
		st        report.Statement
		completed = !sentBefore && s.ctrl.CompletionSent()
	)
	if completed {
		q.metrics.SessionCompleted()
		st = q.statementLocked(s)
	}
	q.persistLocked(ctx, s)
	s.mu.Unlock()

	if completed {
		q.logger.Info("session complete",
			zap.String("session", s.id),
			zap.Int("score", st.Result.Score.Raw),
			zap.Int("maxScore", st.Result.Score.Max),
		)
		q.publish(ctx, s, st)
	}
	return ev, nil
}

// Navigate moves the displayed card. Out-of-range moves report false.
func (q *QuizService) Navigate(ctx context.Context, s *Session, m Move) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved bool
	switch m {
	case MoveNext:
		moved = s.ctrl.Next()
	case MovePrevious:
		moved = s.ctrl.Previous()
	case MoveFirst:
		moved = s.ctrl.First()
	case MoveLast:
		moved = s.ctrl.Last()
	}
	if moved {
		q.persistLocked(ctx, s)
	}
	return moved
}

// ResolveMedia records image dimensions supplied by the UI.
func (q *QuizService) ResolveMedia(ctx context.Context, s *Session, pos, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.ResolveMedia(pos, width, height)
	q.persistLocked(ctx, s)
}

// Reset starts the session over.
func (q *QuizService) Reset(ctx context.Context, s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Reset()
	q.persistLocked(ctx, s)
	q.logger.Debug("session reset", zap.String("session", s.id))
}

// Results returns the result statement and its xAPI form without publishing.
func (q *QuizService) Results(_ context.Context, s *Session) (domain.ResultStatement, report.Statement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Results(), q.statementLocked(s)
}

// ScheduleAdvance registers a deferred move to the next card.
func (q *QuizService) ScheduleAdvance(s *Session) AdvanceToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.ScheduleAdvance()
}

// FireAdvance performs a deferred move unless it was cancelled meanwhile.
func (q *QuizService) FireAdvance(ctx context.Context, s *Session, tok AdvanceToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := s.ctrl.FireAdvance(tok)
	if moved {
		q.persistLocked(ctx, s)
	}
	return moved
}

// Leave is called when the learner disconnects. Progress on an unfinished
// session is published as an "answered" statement; the snapshot is kept for resume.
func (q *QuizService) Leave(ctx context.Context, s *Session) {
	s.mu.Lock()
	s.ctrl.CancelAdvance()
	d := s.ctrl.Deck()
	if d.Complete() || d.Answered() == 0 {
		s.mu.Unlock()
		return
	}
	st := q.statementLocked(s)
	s.mu.Unlock()
	q.publish(ctx, s, st)
}

// Discard removes a session's snapshot.
func (q *QuizService) Discard(ctx context.Context, sessionID string) error {
	if err := q.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	return nil
}

func (q *QuizService) statementLocked(s *Session) report.Statement {
	return report.NewStatement(s.ctrl.Results(), report.Envelope{
		ID:           q.newID(),
		SessionID:    s.id,
		Learner:      s.learner,
		ActivityBase: q.activityBase,
		Timestamp:    q.now(),
	})
}

// persistLocked saves the session snapshot. Failures are logged; the in-memory
// session stays authoritative.
func (q *QuizService) persistLocked(ctx context.Context, s *Session) {
	snap := s.ctrl.Deck().Snapshot()
	err := q.sessions.Save(ctx, domain.SessionSnapshot{
		SessionID:      s.id,
		DeckID:         s.deckID,
		Learner:        s.learner,
		Order:          snap.Order,
		Current:        snap.Current,
		States:         snap.States,
		MediaResolved:  snap.MediaResolved,
		Media:          snap.Media,
		CompletionSent: s.ctrl.CompletionSent(),
		UpdatedAt:      q.now(),
	})
	if err != nil {
		q.metrics.SnapshotFailed()
		q.logger.Warn("persist session snapshot", zap.String("session", s.id), zap.Error(err))
	}
}

func (q *QuizService) publish(ctx context.Context, s *Session, st report.Statement) {
	if q.sink == nil {
		return
	}
	err := q.sink.Publish(ctx, st)
	q.metrics.StatementPublished(err)
	if err != nil {
		q.logger.Error("publish statement",
			zap.String("session", s.id),
			zap.String("statement", st.ID),
			zap.Error(err),
		)
	}
}
