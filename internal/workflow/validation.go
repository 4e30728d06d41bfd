package workflow

import (
	"errors"
	"fmt"

	"prepwise_auth/internal/common"

	"github.com/go-playground/validator/v10"
)

type signUpForm struct {
	Name     string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=3"`
}

type signInForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=3"`
}

// Validator checks Credentials against the schema for a mode.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator. It is safe for concurrent use.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns a *ValidationError when creds do not satisfy mode's schema.
// Name is ignored for SignIn.
func (v *Validator) Validate(mode AuthMode, creds Credentials) error {
	var form interface{}
	switch mode {
	case SignUp:
		form = signUpForm{Name: creds.Name, Email: creds.Email, Password: creds.Password}
	case SignIn:
		form = signInForm{Email: creds.Email, Password: creds.Password}
	default:
		return &ValidationError{Fields: map[string]string{"Mode": fmt.Sprintf("The mode %s is not supported.", mode)}}
	}

	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return &ValidationError{Fields: common.FormatValidationErrors(ve)}
	}
	return fmt.Errorf("validating credentials: %w", err)
}
