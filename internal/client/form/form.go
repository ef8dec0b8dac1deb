// Package form validates raw record input before it is sent anywhere.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	types "github.com/yungbote/employee-directory/internal/domain"
)

// Input is the form as typed: both fields are raw text.
type Input struct {
	Name  string `validate:"required,notblank,max=50"`
	Value string `validate:"required,recordvalue"`
}

var (
	once     sync.Once
	validate *validator.Validate
)

func formValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = validate.RegisterValidation("recordvalue", func(fl validator.FieldLevel) bool {
			_, err := parseValue(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

func parseValue(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if v < types.MinValue || v > types.MaxValue {
		return 0, fmt.Errorf("value %d out of range", v)
	}
	return v, nil
}

// Validate returns the trimmed, parsed record or the rejected fields.
func Validate(in Input) (types.Employee, []types.FieldViolation) {
	trimmed := Input{Name: strings.TrimSpace(in.Name), Value: strings.TrimSpace(in.Value)}
	err := formValidator().Struct(trimmed)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return types.Employee{}, []types.FieldViolation{{Field: "form", Message: err.Error()}}
		}
		return types.Employee{}, describe(verrs)
	}
	v, _ := parseValue(trimmed.Value)
	return types.Employee{Name: trimmed.Name, Value: v}, nil
}

func describe(verrs validator.ValidationErrors) []types.FieldViolation {
	out := make([]types.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch {
		case field == "name" && fe.Tag() == "max":
			msg = fmt.Sprintf("name must be at most %d characters", types.MaxNameLength)
		case field == "name":
			msg = "name is required"
		case fe.Tag() == "required":
			msg = "value is required"
		default:
			msg = fmt.Sprintf("value must be a whole number between %d and %d", types.MinValue, types.MaxValue)
		}
		out = append(out, types.FieldViolation{Field: field, Message: msg})
	}
	return out
}

// Result reports what Submit did. Error is the mutation's own message;
// empty means it succeeded.
type Result struct {
	Violations []types.FieldViolation
	Submitted  bool
	Error      string
}

func (r Result) OK() bool { return r.Submitted && r.Error == "" && len(r.Violations) == 0 }

// Submit validates in and, only when it passes, calls mutate with the
// trimmed name and parsed value.
func Submit(in Input, mutate func(types.Employee) string) Result {
	rec, violations := Validate(in)
	if len(violations) > 0 {
		return Result{Violations: violations}
	}
	return Result{Submitted: true, Error: mutate(rec)}
}

// ErrorString adapts an error-returning mutation to Submit.
func ErrorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
