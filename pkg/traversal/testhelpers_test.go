package traversal

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
)

// maxReads bounds every fake reader so that a fake which never returns an
// empty batch fails the test instead of hanging it.
const maxReads = 1000

func testContext() context.Context {
	return logger.New().WithContext(context.Background())
}

type fakeFile struct {
	path  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeFile) Kind() entries.Kind { return entries.KindFile }
func (f *fakeFile) Name() string       { return entries.BaseName(f.path) }
func (f *fakeFile) FullPath() string   { return f.path }

func (f *fakeFile) File(ctx context.Context) (*entries.File, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	content := "content of " + f.path
	return entries.NewFile(f.Name(), int64(len(content)), "text/plain", time.Time{}, func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	}), nil
}

// fakeDir serves its children in the given batch sizes. failAt makes the
// n-th ReadEntries call (1-based) fail instead.
type fakeDir struct {
	t        *testing.T
	path     string
	children []entries.Entry
	batches  []int
	failAt   int
	reads    int
}

func (d *fakeDir) Kind() entries.Kind { return entries.KindDirectory }
func (d *fakeDir) Name() string       { return entries.BaseName(d.path) }
func (d *fakeDir) FullPath() string   { return d.path }

func (d *fakeDir) CreateReader() entries.DirectoryReader {
	return &fakeReader{dir: d}
}

type fakeReader struct {
	dir    *fakeDir
	calls  int
	offset int
}

func (r *fakeReader) ReadEntries(_ context.Context) ([]entries.Entry, error) {
	d := r.dir
	r.calls++
	d.reads++
	if r.calls > maxReads {
		d.t.Errorf("reader for %s called more than %d times; the fake never ends", d.path, maxReads)
		return nil, nil
	}
	if d.failAt > 0 && r.calls == d.failAt {
		return nil, errors.New("directory read failed")
	}
	size := len(d.children) - r.offset
	if len(d.batches) > 0 {
		idx := r.calls - 1
		if idx >= len(d.batches) {
			size = 0
		} else {
			size = d.batches[idx]
		}
	}
	if r.offset+size > len(d.children) {
		size = len(d.children) - r.offset
	}
	batch := d.children[r.offset : r.offset+size]
	r.offset += size
	return batch, nil
}

func file(path string) *fakeFile {
	return &fakeFile{path: path}
}

func dir(t *testing.T, path string, children ...entries.Entry) *fakeDir {
	return &fakeDir{t: t, path: path, children: children}
}

type fakeItem struct {
	kind  entries.ItemKind
	entry entries.Entry
}

func (i fakeItem) Kind() entries.ItemKind { return i.kind }
func (i fakeItem) Entry() entries.Entry   { return i.entry }

func items(es ...entries.Entry) []entries.Item {
	out := make([]entries.Item, 0, len(es))
	for _, e := range es {
		out = append(out, fakeItem{kind: entries.ItemKindFile, entry: e})
	}
	return out
}

func paths(fes []entries.FileEntry) []string {
	out := make([]string, 0, len(fes))
	for _, fe := range fes {
		out = append(out, fe.FullPath())
	}
	return out
}

func filePaths(files []*entries.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelativePath)
	}
	return out
}
