// Package dial validates phone numbers and dispatches outbound calls
// through the voice platform's server API.
package dial

import (
	"regexp"
	"strings"
)

var nanpPattern = regexp.MustCompile(`^\+1[2-9]\d{2}[2-9]\d{6}$`)

// ValidatePhoneNumber normalizes a US phone number to E.164 form. Returns
// "" and false when the number cannot be dialed: 10-digit numbers get the
// +1 country code, 11-digit numbers must already start with 1, and the
// result must be a valid NANP number (no 0/1 area or exchange codes).
func ValidatePhoneNumber(phone string) (string, bool) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	var formatted string
	switch d := digits.String(); {
	case len(d) == 10:
		formatted = "+1" + d
	case len(d) == 11 && d[0] == '1':
		formatted = "+" + d
	default:
		return "", false
	}

	if !nanpPattern.MatchString(formatted) {
		return "", false
	}
	return formatted, true
}
