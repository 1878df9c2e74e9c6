package entries

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind classifies an entry in a dropped tree.
type Kind int

const (
	KindFile Kind = iota + 1
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry is a node of a dropped tree as exposed by the host. FullPath is
// root-relative, forward-slash separated and always starts with "/".
type Entry interface {
	Kind() Kind
	Name() string
	FullPath() string
}

// FileEntry is an entry that can be turned into a File.
type FileEntry interface {
	Entry
	File(ctx context.Context) (*File, error)
}

// DirectoryEntry is an entry whose children are listed through a
// DirectoryReader.
type DirectoryEntry interface {
	Entry
	CreateReader() DirectoryReader
}

// DirectoryReader hands out the children of one directory in bounded batches.
// It's stateful: every call continues where the previous one stopped, and an
// empty batch means the listing is exhausted. There's no way to rewind it or to
// learn the total count up front.
type DirectoryReader interface {
	ReadEntries(ctx context.Context) ([]Entry, error)
}

// ItemKind mirrors the kind of a top-level drop item. Only file items can
// resolve to entries.
type ItemKind string

const (
	ItemKindFile   ItemKind = "file"
	ItemKindString ItemKind = "string"
)

// Item is one top-level element of a drop payload. Entry returns nil when the
// host can't resolve the item.
type Item interface {
	Kind() ItemKind
	Entry() Entry
}

// ErrNotExist is returned by hosts when an entry vanished between listing and
// materialization.
var ErrNotExist = errors.New("entry does not exist")

// File is a materialized file: its metadata plus a lazy handle to its content.
type File struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	ModTime      time.Time `json:"mod_time"`
	RelativePath string    `json:"relative_path"`

	open func(ctx context.Context) (io.ReadCloser, error)
}

// NewFile builds a File whose content is read through open.
func NewFile(name string, size int64, mimeType string, modTime time.Time, open func(ctx context.Context) (io.ReadCloser, error)) *File {
	return &File{
		Name:     name,
		Size:     size,
		MimeType: mimeType,
		ModTime:  modTime,
		open:     open,
	}
}

// Open returns a reader over the file content. The caller closes it. ctx
// bounds the request that fetches the content.
func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	if f.open == nil {
		return nil, errors.Errorf("file %q has no content handle", f.RelativePath)
	}
	rc, err := f.open(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return rc, nil
}

// JoinPath builds the full path of a child from its parent's full path.
func JoinPath(parent, name string) string {
	if parent == "" || parent == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(parent, "/") + "/" + name
}

// BaseName returns the last element of a full path.
func BaseName(fullPath string) string {
	trimmed := strings.TrimSuffix(fullPath, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
