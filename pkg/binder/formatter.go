package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
)

const (
	mx       = "max"
	mn       = "min"
	relpath  = "relpath"
	required = "required"
	unique   = "unique"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case mx:
		return formatBound(field, "less", err)
	case mn:
		return formatBound(field, "greater", err)
	case relpath:
		return fmt.Sprintf("%q must be a relative path that stays inside the drop root", field)
	case required:
		return fmt.Sprintf("%q is required", field)
	case unique:
		return fmt.Sprintf("%q can't contain duplicates", field)
	default:
		return fmt.Sprintf("%q failed the %q check", field, err.Tag())
	}
}

func formatBound(field, direction string, err validator.FieldError) string {
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s than or equal to %s", field, direction, err.Param())
	case reflect.Slice:
		return fmt.Sprintf("%q length must be %s than or equal to %s %s", field, direction, err.Param(), plural("element", err.Param()))
	default:
		return fmt.Sprintf("%q length must be %s than or equal to %s %s", field, direction, err.Param(), plural("character", err.Param()))
	}
}

func plural(resource, n string) string {
	if n == "1" {
		return resource
	}
	return resource + "s"
}
