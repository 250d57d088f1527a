package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/infra/memory"
)

func TestDeckRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		DeckLoader: memory.NewStaticDeckLoader(map[string]domain.Deck{
			"deck-1": sampleDeck(),
		}),
	}
	repo := NewDeckRepository(client, loader, time.Minute, nil)

	deck, err := repo.GetDeck(context.Background(), "deck-1")
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("deck:deck-1") {
		t.Fatalf("expected deck to be cached")
	}
	if ttl := mr.TTL("deck:deck-1"); ttl < time.Minute {
		t.Fatalf("expected ttl of at least a minute, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetDeck(context.Background(), "deck-1")
	if err != nil {
		t.Fatalf("get cached deck: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Cards[1].Answer != deck.Cards[1].Answer || cached.Options.CaseSensitive != deck.Options.CaseSensitive {
		t.Fatalf("cached deck differs: %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), "deck-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetDeck(context.Background(), "deck-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestDeckRepositoryMissingDeck(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewDeckRepository(newClient(mr), memory.NewStaticDeckLoader(nil), time.Minute, nil)
	if _, err := repo.GetDeck(context.Background(), "nope"); !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("expected deck not found, got %v", err)
	}
	if mr.Exists("deck:nope") {
		t.Fatalf("missing decks must not be cached")
	}
}

func TestDeckRepositoryIgnoresCorruptCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	_ = mr.Set("deck:deck-1", "{not json")
	loader := &countingLoader{DeckLoader: memory.NewStaticDeckLoader(map[string]domain.Deck{"deck-1": sampleDeck()})}
	repo := NewDeckRepository(newClient(mr), loader, time.Minute, nil)

	if _, err := repo.GetDeck(context.Background(), "deck-1"); err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected fallback to loader, calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.DeckLoader
	calls int
}

func (l *countingLoader) LoadDeck(ctx context.Context, deckID string) (domain.Deck, error) {
	l.calls++
	return l.DeckLoader.LoadDeck(ctx, deckID)
}

func sampleDeck() domain.Deck {
	return domain.Deck{
		ID:    "deck-1",
		Title: "Capitals",
		Cards: []domain.Card{
			{Question: "Capital of France?", Answer: "Paris"},
			{Question: "Capital of Germany?", Answer: "Berlin/Bonn"},
		},
		Options: domain.Options{CaseSensitive: true},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
