package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"flashcard-quiz-service/internal/domain"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()

	resp := "Paris"
	correct := true
	snap := domain.SessionSnapshot{
		SessionID: "s-1",
		DeckID:    "deck-1",
		Learner:   domain.Learner{ID: "u1", Name: "Alice"},
		Order:     []int{1, 0},
		Current:   1,
		States: []domain.CardState{
			{CardIndex: 1},
			{CardIndex: 0, Response: &resp, Evaluated: true, Correct: &correct},
		},
		UpdatedAt: time.Unix(1700000000, 0).UTC(),
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("flashcards:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("flashcards:session:s-1"); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	got, err := store.Load(ctx, "s-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.DeckID != "deck-1" || got.Current != 1 || got.Order[0] != 1 || got.Learner.Name != "Alice" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if !got.States[1].Evaluated || *got.States[1].Response != "Paris" || !*got.States[1].Correct {
		t.Fatalf("unexpected card state %+v", got.States[1])
	}
	if !got.UpdatedAt.Equal(snap.UpdatedAt) {
		t.Fatalf("unexpected timestamp %v", got.UpdatedAt)
	}

	if err := store.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("flashcards:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, err := store.Load(ctx, "s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err := store.Delete(ctx, "s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found on second delete, got %v", err)
	}
}

func TestSessionStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	if err := store.Save(context.Background(), domain.SessionSnapshot{SessionID: "s-2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Load(context.Background(), "s-2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}
