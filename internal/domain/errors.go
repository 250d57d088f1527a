package domain

import "errors"

var (
	// ErrEmptyDeck is returned when a deck definition has no cards.
	ErrEmptyDeck = errors.New("deck has no cards")
	// ErrDeckNotFound indicates the deck content could not be loaded.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrSessionNotFound is returned when a quiz session has not been started or has expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrDeckNotReady is returned when a card is answered while media references are still loading.
	ErrDeckNotReady = errors.New("deck is not ready")
	// ErrCardOutOfRange indicates a card index outside the deck.
	ErrCardOutOfRange = errors.New("card index out of range")
	// ErrInputRequired is returned when an empty answer is submitted and input is required.
	ErrInputRequired = errors.New("an answer is required before the solution is shown")
	// ErrSnapshotMismatch indicates a stored session snapshot does not fit its deck definition.
	ErrSnapshotMismatch = errors.New("session snapshot does not match deck")
	// ErrInvalidOptions indicates deck options that contradict each other.
	ErrInvalidOptions = errors.New("invalid deck options")
)
