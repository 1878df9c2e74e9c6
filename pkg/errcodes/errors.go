package errcodes

import (
	"fmt"
	"net/http"
)

// Codes the drop endpoints answer with besides the generic request errors.
const (
	CodeNotConfigured   = "not_configured"
	CodeTraversalFailed = "traversal_failed"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
	// RunID names the traversal run an error came out of, if any.
	RunID string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	te.RunID = err.RunID
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		HTTPCode: http.StatusNotFound,
		Message:  resource + " not found.",
		Code:     "not_found",
	}
}

// NotConfigured returns a 404 error for a drop source the server wasn't set
// up with.
func NotConfigured(source string) error {
	return &Error{
		HTTPCode: http.StatusNotFound,
		Message:  source + " is not configured.",
		Code:     CodeNotConfigured,
	}
}

// TraversalFailed is the single notice shown when a drop couldn't be read as
// a whole. Details stay in the logs, under runID.
func TraversalFailed(runID string) error {
	return &Error{
		HTTPCode: http.StatusInternalServerError,
		Message:  "The dropped items couldn't be read.",
		Code:     CodeTraversalFailed,
		RunID:    runID,
	}
}

func UnsupportedMediaType() error {
	return &Error{
		HTTPCode: http.StatusUnsupportedMediaType,
		Message:  "Unsupported Media Type",
		Code:     "unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  fmt.Sprintf("Unknown Parameter %q", param),
		Code:     "unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		HTTPCode: http.StatusBadRequest,
		Message:  "Malformed Payload",
		Code:     "malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		HTTPCode: http.StatusBadRequest,
		Message:  "Request body can't be empty.",
		Code:     "empty_request_body",
	}
}
