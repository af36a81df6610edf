package handler

import (
	"vendor-service/internal/model"

	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs the shared validator into echo's Validate hook
type RequestValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator to install as echo.Echo.Validator
func NewValidator() *RequestValidator {
	return &RequestValidator{validator: model.Validator()}
}

// Validate runs the struct's validate tags and reports failures as
// model.ValidationErrors
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return model.ProcessValidationErrors(err)
	}
	return nil
}
