package app

import (
	"strings"

	"flashcard-quiz-service/internal/deck"
	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/report"
)

// AdvanceToken identifies a deferred move to the next card. The zero token
// never refers to a pending advance.
type AdvanceToken uint64

// Controller turns learner intents into deck mutations and notifications.
// It is not safe for concurrent use; Session serializes access to it.
type Controller struct {
	deck     *deck.Deck
	notifier Notifier

	completionSent bool
	results        *domain.ResultStatement

	lastToken AdvanceToken
	pending   AdvanceToken
}

// NewController wraps d. A nil notifier discards events.
func NewController(d *deck.Deck, n Notifier) *Controller {
	if n == nil {
		n = NopNotifier{}
	}
	return &Controller{deck: d, notifier: n}
}

// RestoreController wraps a restored deck, remembering whether the completion
// notification was already delivered before the session was persisted.
func RestoreController(d *deck.Deck, n Notifier, completionSent bool) *Controller {
	c := NewController(d, n)
	c.completionSent = completionSent && d.Complete()
	return c
}

// Deck exposes the underlying deck for read-only use.
func (c *Controller) Deck() *deck.Deck { return c.deck }

// Current is the position of the displayed card.
func (c *Controller) Current() int { return c.deck.Current() }

// AnswerCurrentCard evaluates response against the displayed card. Surrounding
// whitespace of the typed text is ignored. A card that was already evaluated
// keeps its first outcome.
func (c *Controller) AnswerCurrentCard(response string) (domain.Evaluation, error) {
	response = strings.TrimSpace(response)
	if response == "" && c.deck.Definition().Options.RequireInputBeforeSolution {
		return domain.Evaluation{}, domain.ErrInputRequired
	}

	ev, err := c.deck.Submit(c.deck.Current(), response)
	if err != nil || !ev.Applied {
		return ev, err
	}

	c.results = nil
	c.notifier.CardEvaluated(ev.Position, ev.Correct)

	if ev.Complete && !c.completionSent {
		c.CancelAdvance()
		if c.deck.Last() {
			c.notifier.CardChanged(c.deck.Current())
		}
		c.completionSent = true
		c.notifier.SessionComplete(c.deck.Score(), c.deck.MaxScore())
	}
	return ev, nil
}

// Next shows the following card. Any pending deferred advance is cancelled.
func (c *Controller) Next() bool { return c.navigate(c.deck.Next) }

// Previous shows the preceding card.
func (c *Controller) Previous() bool { return c.navigate(c.deck.Previous) }

// First shows the first card.
func (c *Controller) First() bool { return c.navigate(c.deck.First) }

// Last shows the last card.
func (c *Controller) Last() bool { return c.navigate(c.deck.Last) }

func (c *Controller) navigate(move func() bool) bool {
	c.CancelAdvance()
	if !move() {
		return false
	}
	c.notifier.CardChanged(c.deck.Current())
	return true
}

// ResolveMedia forwards resolved image dimensions to the deck and announces
// the first card once the deck becomes ready.
func (c *Controller) ResolveMedia(pos, width, height int) {
	wasBuilding := c.deck.Phase() == deck.PhaseBuilding
	c.deck.ResolveMedia(pos, width, height)
	if wasBuilding && c.deck.Phase() != deck.PhaseBuilding {
		c.notifier.CardChanged(c.deck.Current())
	}
}

// Reset clears every answer and re-arms the completion notification.
func (c *Controller) Reset() {
	c.CancelAdvance()
	c.deck.Reset()
	c.results = nil
	c.completionSent = false
	c.notifier.CardChanged(c.deck.Current())
}

// Score is recomputed from the deck on every call.
func (c *Controller) Score() int { return c.deck.Score() }

// MaxScore is the number of cards.
func (c *Controller) MaxScore() int { return c.deck.MaxScore() }

// ResultsAvailable reports whether the results view may be shown.
func (c *Controller) ResultsAvailable() bool { return c.deck.Complete() }

// CompletionSent reports whether SessionComplete has fired since the last reset.
func (c *Controller) CompletionSent() bool { return c.completionSent }

// Results returns the result statement for the current state. It is built
// once per mutation; every caller gets its own copy.
func (c *Controller) Results() domain.ResultStatement {
	if c.results == nil {
		rs := report.Build(c.deck)
		c.results = &rs
	}
	return c.results.Clone()
}

// ScheduleAdvance registers a deferred move to the next card and returns its
// token. It replaces any advance that is still pending.
func (c *Controller) ScheduleAdvance() AdvanceToken {
	c.lastToken++
	c.pending = c.lastToken
	return c.pending
}

// FireAdvance performs the deferred move identified by tok. It is a no-op when
// tok was cancelled or superseded.
func (c *Controller) FireAdvance(tok AdvanceToken) bool {
	if tok == 0 || tok != c.pending {
		return false
	}
	c.pending = 0
	if !c.deck.Next() {
		return false
	}
	c.notifier.CardChanged(c.deck.Current())
	return true
}

// CancelAdvance drops the pending deferred advance, if any.
func (c *Controller) CancelAdvance() { c.pending = 0 }

// PendingAdvance returns the pending token and whether one exists.
func (c *Controller) PendingAdvance() (AdvanceToken, bool) { return c.pending, c.pending != 0 }
