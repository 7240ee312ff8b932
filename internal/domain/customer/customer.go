// Package customer contains the customer feature record sent to the
// prediction service and the rules that bound each of its fields.
package customer

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Record is the feature vector for one customer. JSON keys are the exact
// payload keys expected by the prediction service.
type Record struct {
	CreditScore     int     `json:"CreditScore" validate:"min=300,max=850"`
	Geography       string  `json:"Geography" validate:"oneof=France Germany Spain"`
	Gender          string  `json:"Gender" validate:"oneof=Male Female"`
	Age             int     `json:"Age" validate:"min=18,max=92"`
	Tenure          int     `json:"Tenure" validate:"min=0,max=10"`
	Balance         float64 `json:"Balance" validate:"min=0,max=250000"`
	NumOfProducts   int     `json:"NumOfProducts" validate:"oneof=1 2 3 4"`
	HasCrCard       int     `json:"HasCrCard" validate:"oneof=0 1"`
	IsActiveMember  int     `json:"IsActiveMember" validate:"oneof=0 1"`
	EstimatedSalary float64 `json:"EstimatedSalary" validate:"min=0,max=200000"`
}

// Defaults returns the record a fresh form starts with.
func Defaults() Record {
	return Record{
		CreditScore:     650,
		Geography:       "France",
		Gender:          "Male",
		Age:             40,
		Tenure:          5,
		Balance:         50000,
		NumOfProducts:   2,
		HasCrCard:       1,
		IsActiveMember:  1,
		EstimatedSalary: 50000,
	}
}

// FieldErrors maps a field key to a human readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrInvalidRecord.
func (fe FieldErrors) Unwrap() error { return ErrInvalidRecord }

// Keys returns the invalid field keys in form order.
func (fe FieldErrors) Keys() []string {
	keys := make([]string, 0, len(fe))
	for _, f := range fields {
		if _, ok := fe[f.Key]; ok {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})
	return v
}

// Validate checks every field against its range or allowed values. The
// returned error is a FieldErrors.
func (r Record) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe.Field())
	}
	return out
}

// describe renders the domain of a field as an error message.
func describe(key string) string {
	f, ok := Lookup(key)
	if !ok {
		return "is invalid"
	}
	return f.Constraint()
}
