package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"flashcard-quiz-service/internal/report"
)

// StatementRow is the stored form of a published result statement.
type StatementRow struct {
	bun.BaseModel `bun:"table:result_statements"`

	ID         string          `bun:"id,pk"`
	ActivityID string          `bun:"activity_id,notnull"`
	LearnerID  string          `bun:"learner_id,notnull"`
	Verb       string          `bun:"verb,notnull"`
	ScoreRaw   int             `bun:"score_raw,notnull"`
	ScoreMax   int             `bun:"score_max,notnull"`
	Completion bool            `bun:"completion,notnull"`
	Success    bool            `bun:"success,notnull"`
	Payload    json.RawMessage `bun:"payload,type:jsonb,notnull"`
	StoredAt   time.Time       `bun:"stored_at,nullzero,notnull,default:current_timestamp"`
}

// StatementStore archives result statements in Postgres through bun.
type StatementStore struct {
	db *bun.DB
}

func NewStatementStore(db *bun.DB) *StatementStore {
	return &StatementStore{db: db}
}

// Publish inserts st. Re-publishing a statement ID is a no-op.
func (s *StatementStore) Publish(ctx context.Context, st report.Statement) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal statement: %w", err)
	}
	row := &StatementRow{
		ID:         st.ID,
		ActivityID: st.Object.ID,
		LearnerID:  st.Actor.Account.Name,
		Verb:       st.Verb.ID,
		ScoreRaw:   st.Result.Score.Raw,
		ScoreMax:   st.Result.Score.Max,
		Completion: st.Result.Completion,
		Success:    st.Result.Success,
		Payload:    payload,
	}
	if _, err := s.db.NewInsert().Model(row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert statement: %w", err)
	}
	return nil
}

// ListByLearner returns a learner's statements, newest first.
func (s *StatementStore) ListByLearner(ctx context.Context, learnerID string, limit int) ([]StatementRow, error) {
	var rows []StatementRow
	q := s.db.NewSelect().Model(&rows).Where("learner_id = ?", learnerID).Order("stored_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	return rows, nil
}
