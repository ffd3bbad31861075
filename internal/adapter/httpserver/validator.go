package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/pscheid92/arenadesk/internal/platform/errors"
)

// requestValidator plugs go-playground/validator into echo's c.Validate.
// Failures become validation errors carrying a field -> message map.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperrors.InternalError("request validation failed", err)
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = messageForTag(fe.Tag(), fe.Param())
	}
	first := ve[0]
	return apperrors.ValidationError(first.Field()+": "+messageForTag(first.Tag(), first.Param())).
		WithField("fields", fields)
}

// fieldName reports fields by their json or query name.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "query"} {
		tag := f.Tag.Get(key)
		if i := strings.Index(tag, ","); i >= 0 {
			tag = tag[:i]
		}
		if tag == "-" {
			return ""
		}
		if tag != "" {
			return tag
		}
	}
	return strings.ToLower(f.Name)
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + param + " characters"
	case "datetime":
		return "must match " + param
	case "oneof":
		return "must be one of " + param
	default:
		return "is invalid"
	}
}

// flexString accepts a JSON string or number. Directus ids and form inputs
// arrive as either, and both must be forwarded unchanged.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return strings.TrimSpace(string(f)) }
