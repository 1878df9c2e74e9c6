package drops

// DropPayload lists paths, relative to the drop root, that were dropped
// together.
type DropPayload struct {
	Paths []string `json:"paths" form:"paths" mod:"dive,trim" validate:"required,min=1,max=1000,unique,dive,relpath"`
}

// S3DropPayload lists keys or folder prefixes, relative to the configured
// bucket prefix, that were dropped together.
type S3DropPayload struct {
	Prefixes []string `json:"prefixes" form:"prefixes" mod:"dive,trim" validate:"required,min=1,max=1000,unique,dive,relpath"`
}

// File is one materialized file in a drop response.
type File struct {
	RelativePath string `json:"relative_path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
}

// Failure is a file that was found but couldn't be materialized.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// DropResponse contains the response for both drop endpoints.
type DropResponse struct {
	RunID    string    `json:"run_id"`
	Files    []File    `json:"files"`
	Failures []Failure `json:"failures"`
	Total    int       `json:"total"`
}
