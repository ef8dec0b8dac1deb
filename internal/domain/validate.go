package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// employeeRules mirrors the stored column constraints.
type employeeRules struct {
	Name  string `validate:"required,notblank,max=50"`
	Value int64  `validate:"gte=0,lte=2147483647"`
}

// FieldViolation describes one rejected field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateEmployee trims the name and checks the record against the stored
// constraints. The normalized record is returned on success.
func ValidateEmployee(e Employee) (Employee, error) {
	n := e.Normalized()
	err := recordValidator().Struct(employeeRules{Name: n.Name, Value: n.Value})
	if err == nil {
		return n, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Employee{}, Wrap(CodeInternal, "employee.validate", err)
	}
	violations := describe(verrs)
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return Employee{}, NewError(CodeValidation, "employee.validate", strings.Join(msgs, "; "), verrs)
}

// Violations extracts per-field violations from a validation error.
func Violations(err error) []FieldViolation {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	return describe(verrs)
}

func describe(verrs validator.ValidationErrors) []FieldViolation {
	out := make([]FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required", "notblank":
			msg = fmt.Sprintf("%s must not be blank", field)
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "gte":
			msg = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "lte":
			msg = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		default:
			msg = fmt.Sprintf("%s failed %s", field, fe.Tag())
		}
		out = append(out, FieldViolation{Field: field, Message: msg})
	}
	return out
}
