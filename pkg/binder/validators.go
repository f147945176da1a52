package binder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	dateRE     = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)
	siteCodeRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

// dateValidator accepts YYYY-MM-DD or the empty string.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return dateRE.MatchString(value)
}

// siteCodeValidator accepts lowercase site codes such as "ficbook" or
// "author.today".
func siteCodeValidator(fl validator.FieldLevel) bool {
	return siteCodeRE.MatchString(fl.Field().String())
}
