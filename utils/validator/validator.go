package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
)

var (
	validate *playground.Validate
	once     sync.Once
)

func GetValidator() *playground.Validate {
	once.Do(initValidator)
	return validate
}

// initValidator reports fields by their JSON names so messages line up
// with what the client sent.
func initValidator() {
	validate = playground.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

func ParseErrors(err error) []string {
	var validationErrors playground.ValidationErrors
	ok := errors.As(err, &validationErrors)
	if !ok {
		return []string{"Unknown error"}
	}

	errs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		errs = append(errs, prettyError(e))
	}

	return errs
}

func prettyError(e playground.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " field is required"
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s length must be less than or equal to %s", e.Field(), e.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", e.Field(), e.Param())
	default:
		return e.Error()
	}
}
