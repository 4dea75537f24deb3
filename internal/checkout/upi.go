package checkout

import (
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var upiPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,}@[a-zA-Z]{2,}$`)

// ValidUPI reports whether ref looks like a UPI virtual payment address,
// e.g. name@upi or 98765@paytm. Surrounding whitespace is ignored.
func ValidUPI(ref string) bool {
	return upiPattern.MatchString(strings.TrimSpace(ref))
}

// RegisterValidators adds the "upi" tag to v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("upi", func(fl validator.FieldLevel) bool {
		return ValidUPI(fl.Field().String())
	})
}
