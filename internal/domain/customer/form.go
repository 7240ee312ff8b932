package customer

import (
	"errors"
	"net/url"
	"strings"
)

// FromForm builds a Record from an HTML form submission. Each field is
// parsed from its key; missing or malformed values and out-of-range values
// are all reported together as FieldErrors.
func FromForm(values url.Values) (Record, error) {
	var r Record
	errs := FieldErrors{}

	for _, f := range fields {
		raw := strings.TrimSpace(values.Get(f.Key))
		if raw == "" {
			errs[f.Key] = "is required"
			continue
		}
		if err := f.Set(&r, raw); err != nil {
			errs[f.Key] = err.Error()
		}
	}

	if err := r.Validate(); err != nil {
		var verrs FieldErrors
		if !errors.As(err, &verrs) {
			return r, err
		}
		for k, msg := range verrs {
			if _, seen := errs[k]; !seen {
				errs[k] = msg
			}
		}
	}

	if len(errs) > 0 {
		return r, errs
	}
	return r, nil
}

// Values renders r as form values, the inverse of FromForm.
func (r Record) Values() url.Values {
	v := make(url.Values, len(fields))
	for _, f := range fields {
		v.Set(f.Key, f.Value(r))
	}
	return v
}
