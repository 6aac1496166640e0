// Package validation checks form input before anything reaches the network.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Errors maps a form field name to the message shown next to it
type Errors struct {
	Fields map[string]string
}

func (e *Errors) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, "" when it passed
func (e *Errors) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

// Validator wraps validator.Validate with the application's tags and messages
type Validator struct {
	validate *validator.Validate
}

// New returns a validator that reports fields by their form tag
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	// Digits with an optional leading +, spaces and dashes allowed
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		digits := 0
		for i, char := range fl.Field().String() {
			switch {
			case unicode.IsDigit(char):
				digits++
			case char == '+' && i == 0:
			case char == ' ' || char == '-':
			default:
				return false
			}
		}
		return digits >= 8 && digits <= 15
	})

	return &Validator{validate: validate}
}

// Struct validates s and returns *Errors listing every failing field
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Errors{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	label := labels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Enter a valid e-mail"
	case "phone":
		return "Enter a valid phone number"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "url":
		return label + " must be a URL"
	default:
		return label + " is invalid"
	}
}

var labels = map[string]string{
	"email":      "E-mail",
	"password":   "Password",
	"phone":      "Phone number",
	"message":    "Message",
	"sms_key":    "SMS key",
	"name":       "Name",
	"avatar_url": "Avatar URL",
}
