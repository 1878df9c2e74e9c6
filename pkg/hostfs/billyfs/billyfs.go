// Package billyfs exposes a go-billy filesystem as a drop host, the way a
// native file picker would: every dropped path becomes a top-level entry whose
// full path starts at its own name.
package billyfs

import (
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
	"github.com/shishobooks/dropzone/pkg/entries"
)

// DefaultBatchSize matches the page size browsers use for directory readers.
const DefaultBatchSize = 100

type Host struct {
	fs        billy.Filesystem
	batchSize int
}

// New wraps fs. A batchSize of zero or less uses DefaultBatchSize.
func New(fs billy.Filesystem, batchSize int) *Host {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Host{fs: fs, batchSize: batchSize}
}

// Items turns dropped paths into drop items. Paths that can't be resolved
// still produce an item; it just has no entry.
func (h *Host) Items(paths ...string) []entries.Item {
	items := make([]entries.Item, 0, len(paths))
	for _, p := range paths {
		items = append(items, &item{host: h, fsPath: clean(p)})
	}
	return items
}

func clean(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return p
}

type item struct {
	host   *Host
	fsPath string
}

func (i *item) Kind() entries.ItemKind { return entries.ItemKindFile }

func (i *item) Entry() entries.Entry {
	info, err := i.host.fs.Stat(i.fsPath)
	if err != nil {
		return nil
	}
	// Dropping the filesystem root has no name of its own to hang paths on.
	name := path.Base(i.fsPath)
	if name == "/" {
		name = ""
	}
	return i.host.entry(i.fsPath, "/"+name, info)
}

func (h *Host) entry(fsPath, fullPath string, info os.FileInfo) entries.Entry {
	if info.IsDir() {
		return &dirEntry{host: h, fsPath: fsPath, fullPath: fullPath}
	}
	return &fileEntry{host: h, fsPath: fsPath, fullPath: fullPath}
}

type fileEntry struct {
	host     *Host
	fsPath   string
	fullPath string
}

func (e *fileEntry) Kind() entries.Kind { return entries.KindFile }
func (e *fileEntry) Name() string       { return path.Base(e.fsPath) }
func (e *fileEntry) FullPath() string   { return e.fullPath }

// File stats the file and sniffs its content type. Content isn't read beyond
// the sniffing window until the caller opens the file.
func (e *fileEntry) File(ctx context.Context) (*entries.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	fs := e.host.fs
	info, err := fs.Stat(e.fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(entries.ErrNotExist, "billy: stat %q", e.fsPath)
		}
		return nil, errors.Wrapf(err, "billy: stat %q", e.fsPath)
	}
	if info.IsDir() {
		return nil, errors.Errorf("billy: %q is a directory", e.fsPath)
	}

	mimeType, err := e.detect()
	if err != nil {
		return nil, err
	}

	fsPath := e.fsPath
	return entries.NewFile(info.Name(), info.Size(), mimeType, info.ModTime(), func(context.Context) (io.ReadCloser, error) {
		f, err := fs.Open(fsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "billy: open %q", fsPath)
		}
		return f, nil
	}), nil
}

// detect returns the sniffed MIME type, or "" when nothing more specific than
// a byte stream could be determined.
func (e *fileEntry) detect() (string, error) {
	f, err := e.host.fs.Open(e.fsPath)
	if err != nil {
		return "", errors.Wrapf(err, "billy: open %q", e.fsPath)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", errors.Wrapf(err, "billy: detect %q", e.fsPath)
	}
	if mtype.Is("application/octet-stream") {
		return "", nil
	}
	return mtype.String(), nil
}

type dirEntry struct {
	host     *Host
	fsPath   string
	fullPath string
}

func (e *dirEntry) Kind() entries.Kind { return entries.KindDirectory }
func (e *dirEntry) Name() string       { return entries.BaseName(e.fullPath) }
func (e *dirEntry) FullPath() string   { return e.fullPath }

func (e *dirEntry) CreateReader() entries.DirectoryReader {
	return &reader{dir: e}
}

// reader lists the directory once, on the first call, and then pages through
// that snapshot.
type reader struct {
	dir    *dirEntry
	listed []os.FileInfo
	loaded bool
	offset int
}

func (r *reader) ReadEntries(ctx context.Context) ([]entries.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	h := r.dir.host
	if !r.loaded {
		infos, err := h.fs.ReadDir(r.dir.fsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "billy: readdir %q", r.dir.fsPath)
		}
		sort.Slice(infos, func(i, j int) bool {
			return infos[i].Name() < infos[j].Name()
		})
		r.listed = infos
		r.loaded = true
	}

	end := r.offset + h.batchSize
	if end > len(r.listed) {
		end = len(r.listed)
	}
	batch := make([]entries.Entry, 0, end-r.offset)
	for _, info := range r.listed[r.offset:end] {
		childFS := path.Join(r.dir.fsPath, info.Name())
		childFull := entries.JoinPath(r.dir.fullPath, info.Name())
		batch = append(batch, h.entry(childFS, childFull, info))
	}
	r.offset = end
	return batch, nil
}
