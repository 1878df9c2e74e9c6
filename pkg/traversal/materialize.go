package traversal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
	"github.com/shishobooks/dropzone/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of materializing one file entry. It's either a
// Materialized or a Failed; callers switch on the concrete type.
type Result interface {
	Path() string
	isResult()
}

// Materialized is a successfully materialized file.
type Materialized struct {
	File *entries.File
}

func (m Materialized) Path() string { return m.File.RelativePath }
func (Materialized) isResult()      {}

// Failed is a file entry whose content handle couldn't be obtained.
type Failed struct {
	EntryPath string
	Err       error
}

func (f Failed) Path() string { return f.EntryPath }
func (Failed) isResult()      {}

// Reason is the human readable failure cause.
func (f Failed) Reason() string {
	if f.Err == nil {
		return "unknown error"
	}
	return f.Err.Error()
}

// Materializer turns pending file entries into files concurrently.
type Materializer struct {
	// Concurrency caps the number of in-flight materializations. Zero or less
	// means one goroutine per file.
	Concurrency int
}

// Materialize fans out over all entries, waits for every one of them, and
// returns the results in input order regardless of completion order. A failing
// entry yields a Failed result and never blocks the others. Each entry is
// attempted exactly once.
func (m *Materializer) Materialize(ctx context.Context, pending []entries.FileEntry) []Result {
	results := make([]Result, len(pending))

	var g errgroup.Group
	if m.Concurrency > 0 {
		g.SetLimit(m.Concurrency)
	}
	for i, entry := range pending {
		g.Go(func() error {
			results[i] = materializeOne(ctx, entry)
			return nil
		})
	}
	// Goroutines only ever report through their own result slot.
	_ = g.Wait()

	return results
}

func materializeOne(ctx context.Context, entry entries.FileEntry) (result Result) {
	path := entry.FullPath()
	log := logger.FromContext(ctx).Data(logger.Data{"path": path})

	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic materializing file: %v", r)
			log.Err(err).Error("error getting file from entry")
			metrics.RecordMaterialization(metrics.ResultFailure)
			result = Failed{EntryPath: path, Err: err}
		}
	}()

	file, err := entry.File(ctx)
	if err == nil && file == nil {
		err = errors.New("host returned no file")
	}
	if err != nil {
		log.Err(err).Warn("error getting file from entry")
		metrics.RecordMaterialization(metrics.ResultFailure)
		return Failed{EntryPath: path, Err: err}
	}

	file.RelativePath = path
	metrics.RecordMaterialization(metrics.ResultSuccess)
	return Materialized{File: file}
}

// Split separates successful files from failures, keeping the order of each.
func Split(results []Result) ([]*entries.File, []Failed) {
	files := make([]*entries.File, 0, len(results))
	var failures []Failed
	for _, r := range results {
		switch r := r.(type) {
		case Materialized:
			files = append(files, r.File)
		case Failed:
			failures = append(failures, r)
		}
	}
	return files, failures
}
