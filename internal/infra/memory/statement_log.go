package memory

import (
	"context"
	"sync"

	"flashcard-quiz-service/internal/report"
)

// StatementLog keeps published statements in memory (useful for tests/demos).
type StatementLog struct {
	mu         sync.Mutex
	statements []report.Statement
}

func NewStatementLog() *StatementLog {
	return &StatementLog{}
}

func (l *StatementLog) Publish(_ context.Context, st report.Statement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statements = append(l.statements, st)
	return nil
}

// Statements returns a copy of everything published so far.
func (l *StatementLog) Statements() []report.Statement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]report.Statement(nil), l.statements...)
}
