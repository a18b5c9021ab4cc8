// Package forms turns submitted form values into validated, typed records.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("length", validLength)
	_ = v.RegisterValidation("maxbytes", validMaxBytes)
	return v
}

// Errors maps a form field name to its validation message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

func validateStruct(s any) Errors {
	errs := Errors{}
	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("form", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "eqfield":
		return fmt.Sprintf("Field must be equal to %s.", fieldName(fe.Param()))
	case "length":
		return lengthMessage(fe)
	case "maxbytes":
		return fmt.Sprintf("Field cannot be longer than %s bytes.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "gt":
		return "Not a valid choice."
	}
	return "Invalid value."
}

func lengthMessage(fe validator.FieldError) string {
	lo, hi, _ := parseBounds(fe.Param())
	return fmt.Sprintf("Field must be between %d and %d characters long.", lo, hi)
}

// validLength implements the "length=min-max" tag, counting characters.
func validLength(fl validator.FieldLevel) bool {
	lo, hi, ok := parseBounds(fl.Param())
	if !ok {
		return false
	}
	n := utf8.RuneCountInString(fl.Field().String())
	return n >= lo && n <= hi
}

// validMaxBytes implements the "maxbytes=n" tag, counting bytes.
func validMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func parseBounds(param string) (int, int, bool) {
	rawLo, rawHi, found := strings.Cut(param, "-")
	if !found {
		return 0, 0, false
	}
	lo, err := strconv.Atoi(rawLo)
	if err != nil {
		return 0, 0, false
	}
	hi, err := strconv.Atoi(rawHi)
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// fieldName maps a struct field named in a tag parameter to its form name.
func fieldName(structField string) string {
	switch structField {
	case "ConfirmPassword":
		return "confirm_password"
	}
	return strings.ToLower(structField)
}

func trimmed(values url.Values, key string) string {
	return strings.TrimSpace(values.Get(key))
}

// checked interprets an HTML checkbox value. A missing field is false.
func checked(values url.Values, key string) bool {
	switch strings.ToLower(strings.TrimSpace(values.Get(key))) {
	case "y", "yes", "on", "true", "1":
		return true
	}
	return false
}
