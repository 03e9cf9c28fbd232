package domain

import "regexp"

// contactNumberPattern matches a phone-like contact: optional leading +,
// first digit 1-9, at most 15 digits total.
var contactNumberPattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidContactNumber reports whether s is an acceptable customer contact
// number.
func ValidContactNumber(s string) bool {
	return contactNumberPattern.MatchString(s)
}
