package report

import "flashcard-quiz-service/internal/domain"

// Source is the read-only view of a deck needed to build a report.
// *deck.Deck satisfies it.
type Source interface {
	Definition() domain.Deck
	Len() int
	Card(pos int) domain.Card
	State(pos int) domain.CardState
	Alternatives(spec string) []string
	CaseSensitive() bool
	Score() int
	MaxScore() int
	Answered() int
	Complete() bool
}

// Build projects the current state of src into a ResultStatement. It may be
// called at any time; unanswered cards carry an empty response. Build never
// mutates src and returns equal statements for equal states.
func Build(src Source) domain.ResultStatement {
	def := src.Definition()
	rs := domain.ResultStatement{
		DeckID:   def.ID,
		Title:    def.Title,
		Score:    src.Score(),
		MaxScore: src.MaxScore(),
		Answered: src.Answered(),
		Complete: src.Complete(),
		Cards:    make([]domain.CardResult, src.Len()),
	}
	for pos := range rs.Cards {
		card := src.Card(pos)
		state := src.State(pos)
		alts := src.Alternatives(card.Answer)

		cr := domain.CardResult{
			Position:      pos,
			CardIndex:     state.CardIndex,
			Question:      card.Question,
			Alternatives:  alts,
			Answered:      state.Evaluated,
			CaseSensitive: src.CaseSensitive(),
		}
		if len(alts) > 0 {
			cr.Canonical = alts[0]
		}
		if state.Response != nil {
			cr.Response = *state.Response
		}
		if state.Correct != nil {
			cr.Correct = *state.Correct
		}
		rs.Cards[pos] = cr
	}
	return rs
}
