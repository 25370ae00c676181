// Package validation holds the client-side format checks that gate the send and verify
// controls. No backend call is made for input that fails here.
package validation

import (
	"regexp"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

// CountryPhoneRule describes the accepted local number format for one dialling code.
type CountryPhoneRule struct {
	Code    models.CountryCode
	Pattern *regexp.Regexp
	Example string
	Help    string
}

var rules = map[models.CountryCode]CountryPhoneRule{
	models.CountryIndia: {
		Code:    models.CountryIndia,
		Pattern: regexp.MustCompile(`^[6-9][0-9]{9}$`),
		Example: "7039940998",
		Help:    "Enter 10-digit Indian mobile number (e.g., 7039940998)",
	},
	models.CountryUS: {
		Code:    models.CountryUS,
		Pattern: regexp.MustCompile(`^[2-9][0-9]{9}$`),
		Example: "2125551234",
		Help:    "Enter 10-digit US phone number (e.g., 2125551234)",
	},
	models.CountryUK: {
		Code:    models.CountryUK,
		Pattern: regexp.MustCompile(`^7[0-9]{9}$`),
		Example: "7700900123",
		Help:    "Enter UK phone number (e.g., 7700900123)",
	},
}

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

const defaultHelp = "Select country and enter phone number"

// Rule returns the rule for code. Unknown codes have no rule.
func Rule(code models.CountryCode) (CountryPhoneRule, bool) {
	r, ok := rules[code]
	return r, ok
}

// ValidatePhone fails closed for country codes outside the table.
func ValidatePhone(phone string, code models.CountryCode) bool {
	r, ok := rules[code]
	if !ok {
		return false
	}
	return r.Pattern.MatchString(phone)
}

// ValidateOTP accepts exactly six ASCII digits.
func ValidateOTP(otp string) bool {
	return otpPattern.MatchString(otp)
}

func PhoneHelpText(code models.CountryCode) string {
	if r, ok := rules[code]; ok {
		return r.Help
	}
	return defaultHelp
}
