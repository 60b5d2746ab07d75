package api

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// validate is shared; validator.Validate caches struct metadata and is
// safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so params match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateRequest checks a request body against its validate struct tags.
// It returns an *APIError describing the first validation failure, or nil
// if the request is valid.
func ValidateRequest(req any) *APIError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewInvalidRequestError("", err.Error())
	}

	fe := verrs[0]
	param := fieldPath(fe)
	return NewInvalidRequestError(param, describe(param, fe))
}

// fieldPath strips the top-level struct name from the namespace,
// e.g. "RegisterRequest.email" becomes "email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(param string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", param)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s entries", param, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", param, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", param, fe.Param())
	case "username":
		return fmt.Sprintf("%s may only contain letters, digits, '.', '_' and '-'", param)
	default:
		return fmt.Sprintf("%s failed %q validation", param, fe.Tag())
	}
}
