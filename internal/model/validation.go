package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// ValidationErrors maps a JSON field name to the rule it failed
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Validator returns the shared validator, configured to report JSON field names
func Validator() *validator.Validate {
	return validate
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ProcessValidationErrors converts validator errors into a field -> rule map.
// Errors of any other kind are returned unchanged.
func ProcessValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := ValidationErrors{}
	for _, ve := range verrs {
		out[ve.Field()] = ve.Tag()
	}
	return out
}

func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return ProcessValidationErrors(err)
	}
	return nil
}

func isJSON(b []byte) bool {
	return json.Valid(b)
}
