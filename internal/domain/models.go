package domain

import "time"

// Media is an image attached to a card. Width and Height are supplied by the UI
// once the image has been resolved; zero values mean unknown.
type Media struct {
	Path   string `json:"path" yaml:"path"`
	Alt    string `json:"alt,omitempty" yaml:"alt,omitempty"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// MediaSize is the resolved size of the image shown at one deck position.
type MediaSize struct {
	Position int `json:"position"`
	Width    int `json:"width"`
	Height   int `json:"height"`
}

// Card is one question/answer unit. Answer holds the raw accepted-answer spec,
// alternatives separated by "/" with "\/" for a literal slash.
type Card struct {
	Question string `json:"question,omitempty" yaml:"question,omitempty"`
	Answer   string `json:"answer,omitempty" yaml:"answer,omitempty"`
	Image    *Media `json:"image,omitempty" yaml:"image,omitempty"`
	Hint     string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Options are the per-deck session settings.
type Options struct {
	CaseSensitive              bool `json:"caseSensitive" yaml:"caseSensitive"`
	RandomizeCardOrder         bool `json:"randomizeCardOrder" yaml:"randomizeCardOrder"`
	RequireInputBeforeSolution bool `json:"requireInputBeforeSolution" yaml:"requireInputBeforeSolution"`
	ReshuffleOnReset           bool `json:"reshuffleOnReset" yaml:"reshuffleOnReset"`
}

// Validate rejects option combinations that cannot take effect.
func (o Options) Validate() error {
	if o.ReshuffleOnReset && !o.RandomizeCardOrder {
		return ErrInvalidOptions
	}
	return nil
}

// Deck is a deck definition as loaded from content storage.
type Deck struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Cards       []Card  `json:"cards" yaml:"cards"`
	Options     Options `json:"options" yaml:"options"`
}

// CardState is the runtime state of the card at one deck position.
type CardState struct {
	CardIndex int     `json:"cardIndex"`
	Response  *string `json:"response,omitempty"`
	Evaluated bool    `json:"evaluated"`
	Correct   *bool   `json:"correct,omitempty"`
}

// Evaluation is the outcome of a submit. Applied is false when the card had
// already been evaluated and the stored outcome is returned unchanged.
type Evaluation struct {
	Position int    `json:"position"`
	Correct  bool   `json:"correct"`
	Response string `json:"response"`
	Applied  bool   `json:"applied"`
	Complete bool   `json:"complete"`
}

// CardResult is the report view of one card.
type CardResult struct {
	Position      int      `json:"position"`
	CardIndex     int      `json:"cardIndex"`
	Question      string   `json:"question"`
	Canonical     string   `json:"canonical"`
	Alternatives  []string `json:"alternatives"`
	Response      string   `json:"response"`
	Answered      bool     `json:"answered"`
	Correct       bool     `json:"correct"`
	CaseSensitive bool     `json:"caseSensitive"`
}

// ResultStatement is a snapshot of a session's outcome, in deck order.
type ResultStatement struct {
	DeckID   string       `json:"deckId"`
	Title    string       `json:"title,omitempty"`
	Score    int          `json:"score"`
	MaxScore int          `json:"maxScore"`
	Answered int          `json:"answered"`
	Complete bool         `json:"complete"`
	Cards    []CardResult `json:"cards"`
}

// Clone returns a copy that shares no slices with rs.
func (rs ResultStatement) Clone() ResultStatement {
	out := rs
	out.Cards = make([]CardResult, len(rs.Cards))
	for i, c := range rs.Cards {
		c.Alternatives = append([]string(nil), c.Alternatives...)
		out.Cards[i] = c
	}
	return out
}

// SessionSnapshot is the persisted form of an in-progress session.
type SessionSnapshot struct {
	SessionID      string      `json:"sessionId"`
	DeckID         string      `json:"deckId"`
	Learner        Learner     `json:"learner"`
	Order          []int       `json:"order"`
	Current        int         `json:"current"`
	States         []CardState `json:"states"`
	MediaResolved  bool        `json:"mediaResolved"`
	Media          []MediaSize `json:"media,omitempty"`
	CompletionSent bool        `json:"completionSent"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Learner identifies who is taking the quiz.
type Learner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
