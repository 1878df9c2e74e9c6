package traversal

import (
	"context"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
)

// Collect drains the top-level drop items into a fresh work queue. Items that
// aren't files, or that the host can't resolve to an entry, are skipped
// without an error. Order is preserved.
func Collect(ctx context.Context, items []entries.Item) *Queue {
	log := logger.FromContext(ctx)
	q := NewQueue()
	for i, item := range items {
		if item == nil || item.Kind() != entries.ItemKindFile {
			continue
		}
		entry := item.Entry()
		if entry == nil {
			log.Debug("drop item has no entry", logger.Data{"index": i})
			continue
		}
		q.Push(entry)
	}
	return q
}
