package server

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// AppValidator wraps go-playground/validator for echo.
type AppValidator struct {
	validator *validator.Validate
}

// NewAppValidator creates a new AppValidator.
func NewAppValidator() *AppValidator {
	return &AppValidator{validator: validator.New()}
}

// Validate validates a struct using go-playground/validator tags. The
// first failing field is reported.
func (v *AppValidator) Validate(i any) error {
	if err := v.validator.Struct(i); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return rferrors.NewValidationError(fe.Field(), fmt.Sprintf("failed on '%s' validation", fe.Tag()))
		}
		return rferrors.NewValidationError("", "invalid request body")
	}
	return nil
}
