package deck

import (
	"fmt"

	"flashcard-quiz-service/internal/domain"
)

// Snapshot is the serializable state of a deck. Taking one has no side effects.
type Snapshot struct {
	Order         []int
	Current       int
	States        []domain.CardState
	MediaResolved bool
	// Media lists the sizes reported for every resolved image, by position.
	Media []domain.MediaSize
}

// Snapshot captures the current order, position and card states.
func (d *Deck) Snapshot() Snapshot {
	snap := Snapshot{
		Order:         append([]int(nil), d.order...),
		Current:       d.current,
		States:        make([]domain.CardState, len(d.states)),
		MediaResolved: d.phase != PhaseBuilding,
	}
	for pos := range d.states {
		snap.States[pos] = d.State(pos)
		img := d.Card(pos).Image
		if _, pending := d.pending[pos]; img == nil || pending {
			continue
		}
		snap.Media = append(snap.Media, domain.MediaSize{Position: pos, Width: img.Width, Height: img.Height})
	}
	return snap
}

// Restore rebuilds a deck from def and a snapshot taken from a deck built on
// the same definition. The phase is derived from the restored states.
func Restore(def domain.Deck, snap Snapshot, opts ...Option) (*Deck, error) {
	d, err := newDeck(def, opts)
	if err != nil {
		return nil, err
	}
	n := len(def.Cards)
	if len(snap.Order) != n || len(snap.States) != n {
		return nil, fmt.Errorf("%w: %d cards, snapshot has %d", domain.ErrSnapshotMismatch, n, len(snap.Order))
	}
	seen := make([]bool, n)
	for pos, idx := range snap.Order {
		if idx < 0 || idx >= n || seen[idx] {
			return nil, fmt.Errorf("%w: order is not a permutation", domain.ErrSnapshotMismatch)
		}
		seen[idx] = true
		if snap.States[pos].CardIndex != idx {
			return nil, fmt.Errorf("%w: state %d belongs to card %d", domain.ErrSnapshotMismatch, pos, snap.States[pos].CardIndex)
		}
	}
	if snap.Current < 0 || snap.Current >= n {
		return nil, fmt.Errorf("%w: current position %d", domain.ErrSnapshotMismatch, snap.Current)
	}

	copy(d.order, snap.Order)
	d.states = make([]domain.CardState, n)
	for pos, s := range snap.States {
		if s.Evaluated && s.Correct == nil {
			return nil, fmt.Errorf("%w: card %d evaluated without outcome", domain.ErrSnapshotMismatch, pos)
		}
		d.states[pos] = domain.CardState{CardIndex: s.CardIndex, Evaluated: s.Evaluated}
		if s.Response != nil {
			r := *s.Response
			d.states[pos].Response = &r
		}
		if s.Correct != nil {
			c := *s.Correct
			d.states[pos].Correct = &c
		}
		if s.Evaluated {
			d.answered++
		}
	}
	d.current = snap.Current
	d.pending = make(map[int]struct{})

	resolved := make(map[int]bool, len(snap.Media))
	for _, m := range snap.Media {
		if m.Position < 0 || m.Position >= n || d.Card(m.Position).Image == nil {
			return nil, fmt.Errorf("%w: no image at position %d", domain.ErrSnapshotMismatch, m.Position)
		}
		img := *d.Card(m.Position).Image
		img.Width, img.Height = m.Width, m.Height
		d.setImage(m.Position, img)
		resolved[m.Position] = true
	}

	switch {
	case !snap.MediaResolved:
		for pos := range d.order {
			if d.Card(pos).Image != nil && !resolved[pos] {
				d.pending[pos] = struct{}{}
			}
		}
		if len(d.pending) == 0 {
			d.phase = PhaseReady
		}
	case d.answered == n:
		d.phase = PhaseComplete
	case d.answered > 0 || d.current > 0:
		d.phase = PhaseInProgress
	default:
		d.phase = PhaseReady
	}
	return d, nil
}
