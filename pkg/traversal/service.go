package traversal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
	"github.com/shishobooks/dropzone/pkg/metrics"
)

// ErrTraversalFailed wraps any failure that escapes the per-entry and
// per-directory boundaries of a run.
var ErrTraversalFailed = errors.New("drop traversal failed")

// RunError is a failed run. RunID matches the id on the run's log lines.
type RunError struct {
	RunID string
	Err   error
}

func (e *RunError) Error() string { return e.Err.Error() }
func (e *RunError) Unwrap() error { return e.Err }

type Options struct {
	MaterializeConcurrency int
}

type Service struct {
	materializer *Materializer
}

func NewService(opts Options) *Service {
	return &Service{
		materializer: &Materializer{Concurrency: opts.MaterializeConcurrency},
	}
}

// Outcome is everything one drop produced. Results holds one entry per
// discovered file entry, in breadth-first order; Files and Failures are the two
// halves of it.
type Outcome struct {
	RunID    string
	Results  []Result
	Files    []*entries.File
	Failures []Failed
	Duration time.Duration
}

// Run takes one drop event through the whole pipeline: collect, flatten,
// materialize. Every run gets its own queue and result list. Failures of
// single directories or files are absorbed; anything else is returned once,
// with no partial outcome.
func (s *Service) Run(ctx context.Context, items []entries.Item) (outcome *Outcome, err error) {
	start := time.Now()

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	log := logger.FromContext(ctx).ID(id.String())
	ctx = log.WithContext(ctx)

	log.Info("processing drop", logger.Data{"items": len(items)})

	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = errors.Wrapf(ErrTraversalFailed, "panic: %v", r)
		}
		if err != nil {
			metrics.RecordTraversal(metrics.ResultFailure, time.Since(start))
			log.Err(err).Error("error processing drop")
			err = &RunError{RunID: id.String(), Err: err}
			return
		}
		metrics.RecordTraversal(metrics.ResultSuccess, time.Since(start))
	}()

	queue := Collect(ctx, items)
	pending := Flatten(ctx, queue)
	log.Info("tree flattened", logger.Data{"files": len(pending)})

	results := s.materializer.Materialize(ctx, pending)

	// The host gave up on this drop while we were working on it.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrap(ErrTraversalFailed, ctxErr.Error())
	}

	files, failures := Split(results)
	outcome = &Outcome{
		RunID:    id.String(),
		Results:  results,
		Files:    files,
		Failures: failures,
		Duration: time.Since(start),
	}

	log.Info("finished drop", logger.Data{
		"files":    len(files),
		"failures": len(failures),
		"duration": outcome.Duration.String(),
	})
	return outcome, nil
}
