package binder

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// relpathValidator accepts slash-separated paths that stay inside whatever
// root they're resolved against: not absolute, no ".." segments, no NUL
// bytes. A trailing slash is allowed so S3 folder prefixes pass.
func relpathValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" || strings.HasPrefix(value, "/") || strings.ContainsRune(value, 0) {
		return false
	}
	for _, seg := range strings.Split(strings.ReplaceAll(value, "\\", "/"), "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}
