package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"flashcard-quiz-service/internal/report"
)

// DefaultStatementStream is used when no stream name is configured.
const DefaultStatementStream = "flashcards:statements"

// maxStreamLen caps the stream approximately; consumers are expected to keep up.
const maxStreamLen = 10000

// StatementStream appends result statements to a Redis stream for downstream consumers.
type StatementStream struct {
	client *redis.Client
	stream string
}

func NewStatementStream(client *redis.Client, stream string) *StatementStream {
	if stream == "" {
		stream = DefaultStatementStream
	}
	return &StatementStream{client: client, stream: stream}
}

func (s *StatementStream) Publish(ctx context.Context, st report.Statement) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode statement: %w", err)
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":        st.ID,
			"verb":      st.Verb.ID,
			"statement": string(raw),
		},
	}).Err()
}
