package errcodes

import (
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
	golog "github.com/robinjoseph08/golib/logger"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Payload is the body of every error response, nested under "error".
type Payload struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	RunID      string `json:"run_id,omitempty"`
}

// Handle is the Echo error handler. *Error values are rendered as they are,
// *echo.HTTPError values get a code derived from their message, and anything
// else is a bare internal server error.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)
	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}

	p := Describe(err)
	switch {
	case p.Code == CodeTraversalFailed:
		log.Err(err).Error("drop failed", golog.Data{"run_id": p.RunID})
	case p.Code == CodeNotConfigured:
		log.Info("drop source not configured", golog.Data{"message": p.Message})
	case p.StatusCode >= http.StatusInternalServerError:
		log.Err(err).Error("server error", golog.Data{"run_id": p.RunID})
	}

	if err := c.JSON(p.StatusCode, map[string]Payload{"error": p}); err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

// Describe builds the response payload for err.
func Describe(err error) Payload {
	var e *Error
	if errors.As(err, &e) {
		return Payload{
			Code:       e.Code,
			Message:    e.Message,
			StatusCode: e.HTTPCode,
			RunID:      e.RunID,
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code != http.StatusInternalServerError {
		msg := httpErrorMessage(he)
		return Payload{
			Code:       strcase.ToSnake(msg),
			Message:    msg,
			StatusCode: he.Code,
		}
	}

	return Payload{
		Code:       "internal_server_error",
		Message:    "Internal Server Error",
		StatusCode: http.StatusInternalServerError,
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case nil:
		return http.StatusText(he.Code)
	case string:
		if m == "" {
			return http.StatusText(he.Code)
		}
		return m
	default:
		return fmt.Sprint(m)
	}
}
