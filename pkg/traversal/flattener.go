package traversal

import (
	"context"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
	"github.com/shishobooks/dropzone/pkg/metrics"
)

// Flatten drains the queue breadth-first and returns the file entries in the
// order they were dequeued. Directory children are pushed onto the same queue,
// so the output is level order, not depth-first and not lexical.
//
// Only one directory is read at a time and batches within a directory are
// requested one after another, since the reader is stateful.
func Flatten(ctx context.Context, q *Queue) []entries.FileEntry {
	log := logger.FromContext(ctx)
	pending := make([]entries.FileEntry, 0, q.Len())

	for {
		entry, ok := q.Pop()
		if !ok {
			break
		}
		if entry == nil {
			continue
		}

		switch entry.Kind() {
		case entries.KindFile:
			fe, ok := entry.(entries.FileEntry)
			if !ok {
				log.Warn("file entry can't be materialized", logger.Data{"path": entry.FullPath()})
				continue
			}
			pending = append(pending, fe)
		case entries.KindDirectory:
			de, ok := entry.(entries.DirectoryEntry)
			if !ok {
				log.Warn("directory entry can't be listed", logger.Data{"path": entry.FullPath()})
				continue
			}
			expand(ctx, de, q)
		default:
			log.Debug("skipping entry of unknown kind", logger.Data{"path": entry.FullPath()})
		}
	}

	return pending
}

// expand reads every batch of a directory onto the queue. The only end signal
// is an empty batch: a short batch doesn't mean the listing is done. A read
// error ends the listing early, keeping whatever earlier batches produced. Nil
// children are dropped without affecting their siblings.
func expand(ctx context.Context, dir entries.DirectoryEntry, q *Queue) {
	log := logger.FromContext(ctx).Data(logger.Data{"path": dir.FullPath()})
	reader := dir.CreateReader()
	count := 0

	for {
		batch, err := reader.ReadEntries(ctx)
		if err != nil {
			metrics.RecordDirectoryReadError()
			log.Err(err).Warn("error reading directory entries", logger.Data{"read": count})
			return
		}
		metrics.RecordDirectoryBatch()
		if len(batch) == 0 {
			log.Debug("directory listed", logger.Data{"count": count})
			return
		}
		for _, child := range batch {
			if child == nil {
				log.Warn("directory returned an empty entry", logger.Data{"read": count})
				continue
			}
			q.Push(child)
			count++
		}
	}
}
