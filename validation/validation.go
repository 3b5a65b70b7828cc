// Package validation collects field errors as codes keyed by field name.
// Codes are translated for display by the i18n package.
package validation

import (
	"errors"
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has an error.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Merge copies other into v, keeping existing entries.
func (v Violations) Merge(other Violations) {
	for f, c := range other {
		v.Add(f, c)
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if len([]rune(value)) > max {
		v.Add(field, "too_long")
	}
}

// Email accepts an empty value; set Required separately.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil || strings.ContainsAny(value, "<> ") {
		v.Add(field, "invalid_email")
	}
}

// URL accepts an empty value; otherwise it requires an http(s) URL with a host.
func URL(field, value string, v Violations) {
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.Add(field, "invalid_url")
	}
}

// Decimal checks that d fits a decimal(digits, places) column and is not negative.
func Decimal(field string, d decimal.Decimal, digits, places int32, v Violations) {
	if d.IsNegative() {
		v.Add(field, "must_not_be_negative")
		return
	}
	if !d.Equal(d.Truncate(places)) {
		v.Add(field, "too_many_decimal_places")
		return
	}
	limit := decimal.New(1, digits-places)
	if d.GreaterThanOrEqual(limit) {
		v.Add(field, "out_of_range")
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON name.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct runs the `validate` struct tags of s and returns the failures as violations.
func Struct(s any) Violations {
	v := make(Violations)
	err := engine().Struct(s)
	if err == nil {
		return v
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		v.Add("_", "invalid")
		return v
	}
	for _, fe := range ve {
		v.Add(fe.Field(), code(fe))
	}
	return v
}

func code(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "invalid_email"
	case "url", "http_url":
		return "invalid_url"
	case "max":
		return "too_long"
	case "min":
		return "too_short"
	case "oneof":
		return "invalid_choice"
	case "eqfield":
		return "mismatch"
	default:
		return "invalid"
	}
}
