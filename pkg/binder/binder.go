package binder

import (
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/dropzone/pkg/errcodes"
)

var unknownFieldRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder decodes drop request bodies, JSON or form encoded, then trims them
// with mold, fills defaults, and validates them. Empty bodies and unknown
// fields are rejected.
type Binder struct {
	form     *schema.Decoder
	conform  *mold.Transformer
	validate *validator.Validate
}

func New() (*Binder, error) {
	form := schema.NewDecoder()
	form.SetAliasTag("form")

	validate := validator.New()
	validate.RegisterTagNameFunc(jsonName)
	if err := validate.RegisterValidation(relpath, relpathValidator); err != nil {
		return nil, errors.WithStack(err)
	}

	return &Binder{
		form:     form,
		conform:  modifiers.New(),
		validate: validate,
	}, nil
}

// jsonName reports fields under their JSON name so validation messages match
// what the client sent.
func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()
	if req.ContentLength == 0 {
		return errcodes.EmptyRequestBody()
	}

	ctype := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		if err := b.decodeJSON(c, req.Body, i); err != nil {
			return err
		}
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		if err := b.decodeForm(c, i); err != nil {
			return err
		}
	default:
		return errcodes.UnsupportedMediaType()
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}
	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	err := b.validate.Struct(i)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errcodes.ValidationError(formatValidationError(verrs[0]))
	}
	return errors.WithStack(err)
}

func (b *Binder) decodeJSON(c echo.Context, body io.ReadCloser, i interface{}) error {
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	if m := unknownFieldRE.FindStringSubmatch(err.Error()); len(m) > 1 {
		return errcodes.UnknownParameter(m[1])
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}

	logger.FromEchoContext(c).Err(err).Warn("undecodable drop payload")
	return errcodes.MalformedPayload()
}

func (b *Binder) decodeForm(c echo.Context, i interface{}) error {
	params, err := c.FormParams()
	if err != nil {
		return errcodes.MalformedPayload()
	}

	err = b.form.Decode(i, params)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return errors.WithStack(err)
	}
	// MultiError is a map; report whichever problem comes up first.
	for _, fieldErr := range multi {
		var convErr schema.ConversionError
		if errors.As(fieldErr, &convErr) {
			return errcodes.ValidationTypeError(formatSchemaConversionError(convErr))
		}
		var keyErr schema.UnknownKeyError
		if errors.As(fieldErr, &keyErr) {
			return errcodes.UnknownParameter(keyErr.Key)
		}
		return errors.WithStack(fieldErr)
	}
	return errors.WithStack(err)
}
