// Package dropfilter drops the metadata files desktop operating systems leave
// behind in folders before a drop result is handed to an uploader or listing.
package dropfilter

import (
	"strings"

	"github.com/shishobooks/dropzone/pkg/entries"
)

// SystemArtifact is the Finder metadata file macOS writes into folders.
const SystemArtifact = ".DS_Store"

// Excluded reports whether a file is a system artifact, either by name or by
// the end of its reconstructed path.
func Excluded(f *entries.File) bool {
	return f.Name == SystemArtifact || strings.HasSuffix(f.RelativePath, SystemArtifact)
}

// Apply returns the files that aren't system artifacts, in their original
// order. The input slice isn't modified.
func Apply(files []*entries.File) []*entries.File {
	kept := make([]*entries.File, 0, len(files))
	for _, f := range files {
		if f == nil || Excluded(f) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
