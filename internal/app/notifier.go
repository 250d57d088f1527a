package app

// Notifier receives presentation events for one session. Implementations are
// owned by a single session and are called from that session's goroutine.
type Notifier interface {
	CardChanged(pos int)
	CardEvaluated(pos int, correct bool)
	SessionComplete(score, maxScore int)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) CardChanged(int)          {}
func (NopNotifier) CardEvaluated(int, bool)  {}
func (NopNotifier) SessionComplete(int, int) {}

// NotifierFuncs adapts plain functions to Notifier. Nil fields are skipped.
type NotifierFuncs struct {
	OnCardChanged     func(pos int)
	OnCardEvaluated   func(pos int, correct bool)
	OnSessionComplete func(score, maxScore int)
}

func (f NotifierFuncs) CardChanged(pos int) {
	if f.OnCardChanged != nil {
		f.OnCardChanged(pos)
	}
}

func (f NotifierFuncs) CardEvaluated(pos int, correct bool) {
	if f.OnCardEvaluated != nil {
		f.OnCardEvaluated(pos, correct)
	}
}

func (f NotifierFuncs) SessionComplete(score, maxScore int) {
	if f.OnSessionComplete != nil {
		f.OnSessionComplete(score, maxScore)
	}
}
