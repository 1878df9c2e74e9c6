package drops

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/dropzone/pkg/errcodes"
	"github.com/shishobooks/dropzone/pkg/traversal"
)

type handler struct {
	dropsService *Service
}

func (h *handler) dropLocal(c echo.Context) error {
	params := DropPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	ctx := c.Request().Context()
	resp, err := h.dropsService.DropLocal(ctx, params.Paths)
	if err != nil {
		return translate(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) dropS3(c echo.Context) error {
	params := S3DropPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	ctx := c.Request().Context()
	resp, err := h.dropsService.DropS3(ctx, params.Prefixes)
	if err != nil {
		return translate(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// translate maps service errors to the API errors a drop client understands.
// Whole-traversal failures all look the same from the outside.
func translate(err error) error {
	switch {
	case errors.Is(err, ErrS3NotConfigured):
		return errcodes.NotConfigured("S3 drop source")
	case errors.Is(err, traversal.ErrTraversalFailed):
		var runErr *traversal.RunError
		runID := ""
		if errors.As(err, &runErr) {
			runID = runErr.RunID
		}
		return errors.Wrap(errcodes.TraversalFailed(runID), err.Error())
	default:
		return errors.WithStack(err)
	}
}
