package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"flashcard-quiz-service/internal/app"
	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/infra/memory"
	"flashcard-quiz-service/internal/report"
)

func TestAnswerScenarioPublishesOnce(t *testing.T) {
	ctx := context.Background()
	service, _, log := newTestService()

	var completions int
	n := app.NotifierFuncs{OnSessionComplete: func(score, maxScore int) {
		completions++
		if score != 2 || maxScore != 3 {
			t.Fatalf("expected 2/3, got %d/%d", score, maxScore)
		}
	}}
	session, err := service.Start(ctx, "deck-1", domain.Learner{ID: "u1", Name: "Alice"}, n)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i, resp := range []string{"CAT", "paris", "43"} {
		ev, err := service.Answer(ctx, session, resp)
		if err != nil {
			t.Fatalf("answer %d failed: %v", i, err)
		}
		if ev.Correct != (i < 2) {
			t.Fatalf("answer %d: unexpected correctness %v", i, ev.Correct)
		}
		service.Navigate(ctx, session, app.MoveNext)
	}

	// duplicate submit after completion is ignored
	if _, err := service.Answer(ctx, session, "42"); err != nil {
		t.Fatalf("repeat answer failed: %v", err)
	}

	if completions != 1 {
		t.Fatalf("expected one completion, got %d", completions)
	}
	statements := log.Statements()
	if len(statements) != 1 {
		t.Fatalf("expected one statement, got %d", len(statements))
	}
	st := statements[0]
	if st.Verb.ID != report.VerbCompleted || st.Result.Score.Raw != 2 || st.Result.Score.Max != 3 {
		t.Fatalf("unexpected statement %+v", st)
	}
	if st.Result.Response != "CAT[,]paris[,]43" {
		t.Fatalf("unexpected response %q", st.Result.Response)
	}
	if st.Actor.Account.Name != "u1" {
		t.Fatalf("unexpected actor %+v", st.Actor)
	}

	rs, _ := service.Results(ctx, session)
	if rs.Cards[1].Canonical != "Paris" || rs.Cards[1].Response != "paris" {
		t.Fatalf("unexpected second card %+v", rs.Cards[1])
	}
}

func TestStartUnknownDeck(t *testing.T) {
	service, _, _ := newTestService()
	_, err := service.Start(context.Background(), "nope", domain.Learner{ID: "u1"}, nil)
	if !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("expected deck not found, got %v", err)
	}
}

func TestStartEmptyDeck(t *testing.T) {
	service, _, _ := newTestService()
	_, err := service.Start(context.Background(), "empty", domain.Learner{ID: "u1"}, nil)
	if !errors.Is(err, domain.ErrEmptyDeck) {
		t.Fatalf("expected empty deck error, got %v", err)
	}
}

func TestResumeContinuesSession(t *testing.T) {
	ctx := context.Background()
	service, store, log := newTestService()

	session, err := service.Start(ctx, "deck-1", domain.Learner{ID: "u1"}, nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := service.Answer(ctx, session, "cats"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	service.Navigate(ctx, session, app.MoveNext)

	snap, err := store.Load(ctx, session.ID())
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap.Current != 1 || !snap.States[0].Evaluated {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	resumed, err := service.Resume(ctx, session.ID(), nil)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	view := resumed.View()
	if view.Position != 1 || view.Answered != 1 || view.Score != 1 || view.Phase != "in_progress" {
		t.Fatalf("unexpected view %+v", view)
	}

	_, _ = service.Answer(ctx, resumed, "Paris")
	service.Navigate(ctx, resumed, app.MoveLast)
	_, _ = service.Answer(ctx, resumed, "42")
	if got := len(log.Statements()); got != 1 {
		t.Fatalf("expected completion statement, got %d", got)
	}

	if err := service.Discard(ctx, session.ID()); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if _, err := service.Resume(ctx, session.ID(), nil); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestLeavePublishesProgress(t *testing.T) {
	ctx := context.Background()
	service, _, log := newTestService()

	session, _ := service.Start(ctx, "deck-1", domain.Learner{ID: "u1"}, nil)
	service.Leave(ctx, session)
	if got := len(log.Statements()); got != 0 {
		t.Fatalf("expected no statement without answers, got %d", got)
	}

	_, _ = service.Answer(ctx, session, "cat")
	service.Leave(ctx, session)
	statements := log.Statements()
	if len(statements) != 1 || statements[0].Verb.ID != report.VerbAnswered {
		t.Fatalf("expected one answered statement, got %+v", statements)
	}
}

func TestSnapshotFailureDoesNotCorruptSession(t *testing.T) {
	ctx := context.Background()
	decks := memory.NewDeckRepository(memory.NewStaticDeckLoader(testDecks()), time.Minute)
	service := app.NewQuizService(failingStore{}, decks, failingSink{})

	session, err := service.Start(ctx, "deck-1", domain.Learner{ID: "u1"}, nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for _, resp := range []string{"cat", "Paris", "42"} {
		if _, err := service.Answer(ctx, session, resp); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
		service.Navigate(ctx, session, app.MoveNext)
	}
	view := session.View()
	if view.Score != 3 || view.Answered != 3 || !view.ResultsAvailable {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestScheduledAdvance(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()
	session, _ := service.Start(ctx, "deck-1", domain.Learner{ID: "u1"}, nil)

	tok := service.ScheduleAdvance(session)
	service.Reset(ctx, session)
	if service.FireAdvance(ctx, session, tok) {
		t.Fatalf("expected reset to cancel the advance")
	}

	tok = service.ScheduleAdvance(session)
	if !service.FireAdvance(ctx, session, tok) {
		t.Fatalf("expected advance to fire")
	}
	if pos := session.View().Position; pos != 1 {
		t.Fatalf("expected position 1, got %d", pos)
	}
}

func TestResolveMediaBeforeAnswering(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()
	session, err := service.Start(ctx, "pictures", domain.Learner{ID: "u1"}, nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := service.Answer(ctx, session, "cat"); !errors.Is(err, domain.ErrDeckNotReady) {
		t.Fatalf("expected deck not ready, got %v", err)
	}
	service.ResolveMedia(ctx, session, 0, 320, 200)
	view := session.View()
	if view.Phase != "ready" || view.Card.Image == nil || view.Card.Image.Width != 320 {
		t.Fatalf("unexpected view %+v", view)
	}
	if _, err := service.Answer(ctx, session, "cat"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
}

func TestResumeKeepsResolvedMediaSize(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()
	session, err := service.Start(ctx, "pictures", domain.Learner{ID: "u1"}, nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	service.ResolveMedia(ctx, session, 0, 640, 480)

	resumed, err := service.Resume(ctx, session.ID(), nil)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	view := resumed.View()
	if view.Phase != "ready" || view.Card.Image == nil {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Card.Image.Width != 640 || view.Card.Image.Height != 480 {
		t.Fatalf("expected 640x480 after resume, got %+v", *view.Card.Image)
	}
}

type failingStore struct{}

func (failingStore) Save(context.Context, domain.SessionSnapshot) error { return fmt.Errorf("store down") }
func (failingStore) Load(context.Context, string) (domain.SessionSnapshot, error) {
	return domain.SessionSnapshot{}, domain.ErrSessionNotFound
}
func (failingStore) Delete(context.Context, string) error { return nil }

type failingSink struct{}

func (failingSink) Publish(context.Context, report.Statement) error { return fmt.Errorf("sink down") }

func newTestService() (*app.QuizService, *memory.SessionStore, *memory.StatementLog) {
	sessionStore := memory.NewSessionStore()
	log := memory.NewStatementLog()
	deckRepo := memory.NewDeckRepository(memory.NewStaticDeckLoader(testDecks()), 5*time.Minute)
	ids := 0
	service := app.NewQuizService(sessionStore, deckRepo, log,
		app.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
		app.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	return service, sessionStore, log
}

func testDecks() map[string]domain.Deck {
	return map[string]domain.Deck{
		"deck-1": {
			ID:    "deck-1",
			Title: "Basics",
			Cards: []domain.Card{
				{Question: "Plural of cat?", Answer: "cat/cats"},
				{Question: "Capital of France?", Answer: "Paris"},
				{Question: "6 x 7?", Answer: "42"},
			},
		},
		"empty": {ID: "empty"},
		"pictures": {
			ID:    "pictures",
			Cards: []domain.Card{{Question: "What animal?", Answer: "cat", Image: &domain.Media{Path: "cat.png"}}},
		},
	}
}
