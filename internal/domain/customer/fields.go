package customer

import (
	"errors"
	"strconv"
	"strings"
)

// Kind tells how a field is entered.
type Kind string

// Field kinds.
const (
	KindNumber Kind = "number"
	KindSelect Kind = "select"
)

// Option is one allowed value of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one input of the customer form.
type Field struct {
	Key     string
	Label   string
	Kind    Kind
	Integer bool
	Min     float64
	Max     float64
	Step    float64
	Options []Option
	// Column is the form column (0 or 1) the field is laid out in.
	Column int

	get func(Record) string
	set func(*Record, string) error
}

var (
	errWholeNumber = errors.New("must be a whole number")
	errNumber      = errors.New("must be a number")
)

var yesNo = []Option{{Value: "1", Label: "Yes"}, {Value: "0", Label: "No"}}

var fields = []Field{
	{
		Key: "CreditScore", Label: "Credit Score", Kind: KindNumber, Integer: true,
		Min: 300, Max: 850, Step: 1, Column: 0,
		get: func(r Record) string { return strconv.Itoa(r.CreditScore) },
		set: func(r *Record, s string) error { return setInt(&r.CreditScore, s) },
	},
	{
		Key: "Geography", Label: "Geography", Kind: KindSelect, Column: 0,
		Options: []Option{{"France", "France"}, {"Germany", "Germany"}, {"Spain", "Spain"}},
		get:     func(r Record) string { return r.Geography },
		set:     func(r *Record, s string) error { r.Geography = s; return nil },
	},
	{
		Key: "Gender", Label: "Gender", Kind: KindSelect, Column: 0,
		Options: []Option{{"Male", "Male"}, {"Female", "Female"}},
		get:     func(r Record) string { return r.Gender },
		set:     func(r *Record, s string) error { r.Gender = s; return nil },
	},
	{
		Key: "Age", Label: "Age", Kind: KindNumber, Integer: true,
		Min: 18, Max: 92, Step: 1, Column: 0,
		get: func(r Record) string { return strconv.Itoa(r.Age) },
		set: func(r *Record, s string) error { return setInt(&r.Age, s) },
	},
	{
		Key: "Tenure", Label: "Tenure (years)", Kind: KindNumber, Integer: true,
		Min: 0, Max: 10, Step: 1, Column: 0,
		get: func(r Record) string { return strconv.Itoa(r.Tenure) },
		set: func(r *Record, s string) error { return setInt(&r.Tenure, s) },
	},
	{
		Key: "Balance", Label: "Balance (€)", Kind: KindNumber,
		Min: 0, Max: 250000, Step: 1000, Column: 1,
		get: func(r Record) string { return formatFloat(r.Balance) },
		set: func(r *Record, s string) error { return setFloat(&r.Balance, s) },
	},
	{
		Key: "NumOfProducts", Label: "Number of Products", Kind: KindSelect, Integer: true, Column: 1,
		Options: []Option{{"1", "1"}, {"2", "2"}, {"3", "3"}, {"4", "4"}},
		get:     func(r Record) string { return strconv.Itoa(r.NumOfProducts) },
		set:     func(r *Record, s string) error { return setInt(&r.NumOfProducts, s) },
	},
	{
		Key: "HasCrCard", Label: "Has Credit Card", Kind: KindSelect, Integer: true, Column: 1,
		Options: yesNo,
		get:     func(r Record) string { return strconv.Itoa(r.HasCrCard) },
		set:     func(r *Record, s string) error { return setInt(&r.HasCrCard, s) },
	},
	{
		Key: "IsActiveMember", Label: "Is Active Member", Kind: KindSelect, Integer: true, Column: 1,
		Options: yesNo,
		get:     func(r Record) string { return strconv.Itoa(r.IsActiveMember) },
		set:     func(r *Record, s string) error { return setInt(&r.IsActiveMember, s) },
	},
	{
		Key: "EstimatedSalary", Label: "Estimated Salary (€)", Kind: KindNumber,
		Min: 0, Max: 200000, Step: 1000, Column: 1,
		get: func(r Record) string { return formatFloat(r.EstimatedSalary) },
		set: func(r *Record, s string) error { return setFloat(&r.EstimatedSalary, s) },
	},
}

// Fields returns the form fields in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Lookup finds a field by key.
func Lookup(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Value returns the field of r formatted for display or form input.
func (f Field) Value(r Record) string {
	if f.get == nil {
		return ""
	}
	return f.get(r)
}

// Set parses s into the field of r.
func (f Field) Set(r *Record, s string) error {
	if f.set == nil {
		return errors.New("field is read-only")
	}
	return f.set(r, strings.TrimSpace(s))
}

// Constraint describes the allowed domain, phrased as an error message.
func (f Field) Constraint() string {
	if f.Kind == KindSelect {
		vals := make([]string, len(f.Options))
		for i, o := range f.Options {
			if o.Label != o.Value {
				vals[i] = o.Value + " (" + o.Label + ")"
				continue
			}
			vals[i] = o.Value
		}
		return "must be one of " + strings.Join(vals, ", ")
	}
	return "must be between " + formatFloat(f.Min) + " and " + formatFloat(f.Max)
}

// Default returns the default value of the field.
func (f Field) Default() string {
	return f.Value(Defaults())
}

// OptionLabel returns the label for value, or value itself when it is not an option.
func (f Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

func setInt(dst *int, s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errWholeNumber
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errNumber
	}
	*dst = v
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
