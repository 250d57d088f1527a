package app

import (
	"context"
	"errors"

	"flashcard-quiz-service/internal/report"
)

// FanoutSink publishes every statement to all of its sinks, even when one of
// them fails. The returned error joins the individual failures.
type FanoutSink []ReportSink

func (f FanoutSink) Publish(ctx context.Context, st report.Statement) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Publish(ctx, st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
