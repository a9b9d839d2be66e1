package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	models "storefront/model"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindBadRequest
	KindNotFound
	KindConflict
	KindUnavailable
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

var (
	// ErrCheckoutInProgress is returned while a session's create-order call is in flight.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrNotAuthenticated means the session has no usable token.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Failure is an error the user must see: a message, a redirect, or both.
type Failure struct {
	Kind    Kind
	Outcome models.Outcome
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Outcome.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Outcome.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(kind Kind, msg, redirect string, err error) *Failure {
	return &Failure{Kind: kind, Outcome: models.Outcome{Message: msg, Redirect: redirect}, Err: err}
}

// AsFailure extracts the Failure from err, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// check validates v and flattens field errors into a single message.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fail(KindValidation, err.Error(), "", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fail(KindValidation, strings.Join(msgs, "; "), "", err)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
