package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"flashcard-quiz-service/internal/domain"
)

// DeckLoader reads deck definitions from YAML files named {deckID}.yaml in a directory.
type DeckLoader struct {
	dir string
}

func NewDeckLoader(dir string) *DeckLoader {
	return &DeckLoader{dir: dir}
}

func (l *DeckLoader) LoadDeck(_ context.Context, deckID string) (domain.Deck, error) {
	if deckID == "" || strings.ContainsAny(deckID, `/\`) || deckID != filepath.Base(deckID) || strings.HasPrefix(deckID, ".") {
		return domain.Deck{}, domain.ErrDeckNotFound
	}
	for _, ext := range []string{".yaml", ".yml"} {
		deck, err := ReadDeck(filepath.Join(l.dir, deckID+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.Deck{}, err
		}
		if deck.ID == "" {
			deck.ID = deckID
		}
		return deck, nil
	}
	return domain.Deck{}, domain.ErrDeckNotFound
}

// ReadDeck parses a single YAML deck file.
func ReadDeck(path string) (domain.Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Deck{}, err
	}
	var deck domain.Deck
	if err := yaml.Unmarshal(data, &deck); err != nil {
		return domain.Deck{}, fmt.Errorf("parse deck %s: %w", filepath.Base(path), err)
	}
	if deck.ID == "" {
		deck.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return deck, nil
}
