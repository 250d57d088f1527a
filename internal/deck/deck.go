package deck

import (
	"fmt"
	"math/rand"
	"time"

	"flashcard-quiz-service/internal/answer"
	"flashcard-quiz-service/internal/domain"
)

// Phase is the lifecycle phase of a deck.
type Phase int

const (
	PhaseBuilding   Phase = iota // Waiting for media references to resolve
	PhaseReady                   // Nothing answered or navigated yet
	PhaseInProgress              // At least one answer or navigation
	PhaseComplete                // Every card evaluated
)

func (p Phase) String() string {
	switch p {
	case PhaseBuilding:
		return "building"
	case PhaseReady:
		return "ready"
	case PhaseInProgress:
		return "in_progress"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Evaluator decides whether a response satisfies an answer spec.
type Evaluator interface {
	IsCorrect(spec, response string, caseSensitive bool) bool
}

// Option customizes a Deck at construction.
type Option func(*Deck)

// WithRand sets the source used for shuffling.
func WithRand(rnd *rand.Rand) Option { return func(d *Deck) { d.rnd = rnd } }

// WithEvaluator replaces the default answer evaluator.
func WithEvaluator(e Evaluator) Option { return func(d *Deck) { d.eval = e } }

// Deck holds the cards of one session in play order together with their
// runtime state. It is not safe for concurrent use.
type Deck struct {
	def   domain.Deck
	order []int // order[pos] is the index of the card in def.Cards
	// states is aligned with order, not with def.Cards
	states   []domain.CardState
	current  int
	answered int
	phase    Phase
	pending  map[int]struct{} // positions whose media is not resolved yet
	// ownsCards is set once def.Cards has been copied away from the caller
	ownsCards bool

	rnd  *rand.Rand
	eval Evaluator
}

// New builds a deck from def. It fails when def has no cards or its options
// are invalid. The card order is shuffled before any state is attached when
// RandomizeCardOrder is set.
func New(def domain.Deck, opts ...Option) (*Deck, error) {
	d, err := newDeck(def, opts)
	if err != nil {
		return nil, err
	}
	if def.Options.RandomizeCardOrder {
		d.shuffle()
	}
	d.attachStates()
	d.pending = make(map[int]struct{})
	for pos := range d.order {
		if d.Card(pos).Image != nil {
			d.pending[pos] = struct{}{}
		}
	}
	if len(d.pending) == 0 {
		d.phase = PhaseReady
	}
	return d, nil
}

func newDeck(def domain.Deck, opts []Option) (*Deck, error) {
	if len(def.Cards) == 0 {
		return nil, domain.ErrEmptyDeck
	}
	if err := def.Options.Validate(); err != nil {
		return nil, err
	}
	d := &Deck{
		def:   def,
		order: make([]int, len(def.Cards)),
		phase: PhaseBuilding,
	}
	for i := range d.order {
		d.order[i] = i
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rnd == nil {
		d.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.eval == nil {
		d.eval = answer.NewEvaluator()
	}
	return d, nil
}

// shuffle applies a uniform Fisher-Yates permutation to the card order.
func (d *Deck) shuffle() {
	d.rnd.Shuffle(len(d.order), func(i, j int) {
		d.order[i], d.order[j] = d.order[j], d.order[i]
	})
}

func (d *Deck) attachStates() {
	d.states = make([]domain.CardState, len(d.order))
	for pos := range d.states {
		d.states[pos] = domain.CardState{CardIndex: d.order[pos]}
	}
	d.answered = 0
	d.current = 0
}

// ResolveMedia records that the image of the card at pos has been loaded (or
// failed to load). The deck becomes ready when no media is outstanding.
func (d *Deck) ResolveMedia(pos, width, height int) {
	if _, ok := d.pending[pos]; !ok {
		return
	}
	delete(d.pending, pos)
	img := *d.def.Cards[d.order[pos]].Image
	img.Width, img.Height = width, height
	d.setImage(pos, img)
	if len(d.pending) == 0 && d.phase == PhaseBuilding {
		d.phase = PhaseReady
	}
}

// setImage replaces the image of one card without touching the caller's definition.
func (d *Deck) setImage(pos int, img domain.Media) {
	if !d.ownsCards {
		d.def.Cards = append([]domain.Card(nil), d.def.Cards...)
		d.ownsCards = true
	}
	d.def.Cards[d.order[pos]].Image = &img
}

// MediaPending returns the number of card images not yet resolved.
func (d *Deck) MediaPending() int { return len(d.pending) }

// Next moves to the following card. It reports whether the current card changed.
func (d *Deck) Next() bool { return d.moveTo(d.current + 1) }

// Previous moves to the preceding card.
func (d *Deck) Previous() bool { return d.moveTo(d.current - 1) }

// First moves to the first card.
func (d *Deck) First() bool { return d.moveTo(0) }

// Last moves to the last card.
func (d *Deck) Last() bool { return d.moveTo(len(d.order) - 1) }

func (d *Deck) moveTo(pos int) bool {
	if d.phase == PhaseBuilding {
		return false
	}
	if pos < 0 || pos >= len(d.order) || pos == d.current {
		return false
	}
	d.current = pos
	if d.phase == PhaseReady {
		d.phase = PhaseInProgress
	}
	return true
}

// Submit evaluates response for the card at pos. A card is evaluated at most
// once; later submissions return the stored outcome with Applied set to false.
func (d *Deck) Submit(pos int, response string) (domain.Evaluation, error) {
	if d.phase == PhaseBuilding {
		return domain.Evaluation{}, domain.ErrDeckNotReady
	}
	if pos < 0 || pos >= len(d.order) {
		return domain.Evaluation{}, domain.ErrCardOutOfRange
	}

	state := d.states[pos]
	if state.Evaluated {
		return domain.Evaluation{
			Position: pos,
			Correct:  state.Correct != nil && *state.Correct,
			Response: deref(state.Response),
			Complete: d.phase == PhaseComplete,
		}, nil
	}

	card := d.Card(pos)
	correct := d.eval.IsCorrect(card.Answer, response, d.def.Options.CaseSensitive)

	resp := response
	state.Response = &resp
	state.Correct = &correct
	state.Evaluated = true
	d.states[pos] = state
	d.answered++

	if d.answered == len(d.order) {
		d.phase = PhaseComplete
	} else if d.phase == PhaseReady {
		d.phase = PhaseInProgress
	}

	return domain.Evaluation{
		Position: pos,
		Correct:  correct,
		Response: response,
		Applied:  true,
		Complete: d.phase == PhaseComplete,
	}, nil
}

// Reset clears all answers and returns to the first card. The order is
// reshuffled when both RandomizeCardOrder and ReshuffleOnReset are set.
func (d *Deck) Reset() {
	opts := d.def.Options
	if opts.RandomizeCardOrder && opts.ReshuffleOnReset {
		d.shuffle()
	}
	d.attachStates()
	if d.phase != PhaseBuilding {
		d.phase = PhaseReady
	}
}

// Score is the number of cards answered correctly.
func (d *Deck) Score() int {
	score := 0
	for _, s := range d.states {
		if s.Correct != nil && *s.Correct {
			score++
		}
	}
	return score
}

// MaxScore is the number of cards.
func (d *Deck) MaxScore() int { return len(d.order) }

// Len is the number of cards.
func (d *Deck) Len() int { return len(d.order) }

// Answered is the number of evaluated cards.
func (d *Deck) Answered() int { return d.answered }

// Current is the position of the displayed card.
func (d *Deck) Current() int { return d.current }

// Phase returns the lifecycle phase.
func (d *Deck) Phase() Phase { return d.phase }

// Complete reports whether every card has been evaluated.
func (d *Deck) Complete() bool { return d.phase == PhaseComplete }

// Card returns the card shown at pos.
func (d *Deck) Card(pos int) domain.Card { return d.def.Cards[d.order[pos]] }

// State returns a copy of the runtime state at pos.
func (d *Deck) State(pos int) domain.CardState {
	s := d.states[pos]
	if s.Response != nil {
		r := *s.Response
		s.Response = &r
	}
	if s.Correct != nil {
		c := *s.Correct
		s.Correct = &c
	}
	return s
}

// Definition returns the deck definition the session was built from.
func (d *Deck) Definition() domain.Deck { return d.def }

// Alternatives splits spec the way the deck's evaluator does when grading.
func (d *Deck) Alternatives(spec string) []string {
	if p, ok := d.eval.(interface{ Alternatives(string) []string }); ok {
		return p.Alternatives(spec)
	}
	return answer.ParseAlternatives(spec)
}

// CaseSensitive reports whether answers are compared case sensitively.
func (d *Deck) CaseSensitive() bool { return d.def.Options.CaseSensitive }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
