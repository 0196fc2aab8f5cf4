package util

import (
	"regexp"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@\-]{0,127}$`)

// ValidateUserID accepts the opaque ids the upstream store hands out.
func ValidateUserID(id string) bool {
	return userIDPattern.MatchString(id)
}
