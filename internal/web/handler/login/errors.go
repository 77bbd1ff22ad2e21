package login

import "errors"

var (
	// ErrInvalidFormData is returned when the submitted login form cannot be parsed
	// or fails validation.
	ErrInvalidFormData = errors.New("invalid form data")

	// ErrInternalServerError is shown for unexpected failures during the login.
	ErrInternalServerError = errors.New("internal server error")
)
