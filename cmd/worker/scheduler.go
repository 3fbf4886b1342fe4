package main

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// cronLogger adapts zerolog to cron's logging interface.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// newScheduler runs job on schedule (standard five-field cron syntax). A tick
// that fires while the previous run is still going is skipped, and a panic
// in job is logged instead of killing the process.
func newScheduler(ctx context.Context, schedule string, job func(ctx context.Context)) (*cron.Cron, error) {
	cl := cronLogger{log: logger.FromContext(ctx)}

	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(schedule, func() { job(ctx) }); err != nil {
		return nil, fmt.Errorf("newScheduler: parsing schedule %q: %w", schedule, err)
	}

	return c, nil
}
