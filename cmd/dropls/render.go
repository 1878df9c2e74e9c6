package main

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/dropzone/pkg/drops"
)

// renderText writes one block per file. An empty type is shown as "folder",
// which is what drop targets traditionally display for entries the browser
// couldn't type.
func renderText(w io.Writer, resp *drops.DropResponse) error {
	if len(resp.Files) == 0 {
		_, err := fmt.Fprintln(w, "No files have been dropped yet.")
		return err
	}
	for _, f := range resp.Files {
		mimeType := f.MimeType
		if mimeType == "" {
			mimeType = "folder"
		}
		_, err := fmt.Fprintf(w, "Path: %s\nName: %s\nSize: %.2f KB\nType: %s\n---\n",
			f.RelativePath, f.Name, float64(f.Size)/1024, mimeType)
		if err != nil {
			return err
		}
	}
	for _, f := range resp.Failures {
		if _, err := fmt.Fprintf(w, "Failed: %s (%s)\n", f.Path, f.Reason); err != nil {
			return err
		}
	}
	return nil
}

func renderJSON(w io.Writer, resp *drops.DropResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
