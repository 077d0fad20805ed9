// Package domain holds identifiers and request-level identity shared by every
// layer of the service.
package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"

	dErrors "hatch/pkg/domain-errors"
)

// UserID is the numeric identity of an account. Zero is never a valid user.
type UserID int64

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseUserID parses a decimal user id from untrusted input.
func ParseUserID(s string) (UserID, error) {
	if !utf8.ValidString(s) {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	return UserID(n), nil
}
