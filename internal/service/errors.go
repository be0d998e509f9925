package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidCredentials is returned for any failed local login. Unknown
	// users and wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEvaluationTagNotFound indicates the tag does not exist.
	ErrEvaluationTagNotFound = errors.New("evaluation tag not found")
	// ErrReferentialViolation indicates a write named a parent that does not exist.
	ErrReferentialViolation = errors.New("referenced evaluation does not exist")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("resource already exists")
	// ErrOAuthState indicates a missing, expired or replayed OAuth state value.
	ErrOAuthState = errors.New("invalid oauth state")
	// ErrOAuthProvider indicates the identity provider could not complete the login.
	ErrOAuthProvider = errors.New("identity provider request failed")
	// ErrOAuthDisabled indicates no OAuth provider is configured.
	ErrOAuthDisabled = errors.New("oauth login is not configured")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports which input fields were rejected and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, ", "))
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// ValidationFromError converts validator failures into a *ValidationError and
// passes any other error through unchanged.
func ValidationFromError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	fields := make(map[string]string, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		fields[strings.ToLower(fieldErr.Field())] = describeTag(fieldErr)
	}
	return &ValidationError{Fields: fields}
}

func describeTag(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fieldErr.Param())
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}
