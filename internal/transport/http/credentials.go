package httptransport

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	dErrors "hatch/pkg/domain-errors"
)

const (
	usernameLimit = 15
	minEntropy    = 28.0
	// bcrypt refuses longer input.
	passwordLimit = 72
)

var emailPattern = regexp.MustCompile(`^([a-z0-9_+]([a-z0-9_+.]*[a-z0-9_+])?)@([a-z0-9]+([\-.][a-z0-9]+)*\.[a-z]{2,6})`)

// passwordEntropy estimates the strength of an ASCII password in bits from
// its length and the character classes it draws on.
func passwordEntropy(password string) float64 {
	var digit, lower, upper, other bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case c >= '0' && c <= '9':
			digit = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		default:
			other = true
		}
	}

	pool := 0
	if digit {
		pool += 10
	}
	if lower {
		pool += 26
	}
	if upper {
		pool += 26
	}
	if other {
		pool += 33
	}
	if pool == 0 {
		return 0
	}
	return float64(len(password)) * math.Log2(float64(pool))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

func validUsernameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

func validateUsername(name string) error {
	for i := 0; i < len(name); i++ {
		if !validUsernameChar(name[i]) {
			return dErrors.New(dErrors.CodeValidation, "username must use letters, numbers, underscores, and hyphens only")
		}
	}
	if len(name) == 0 || len(name) > usernameLimit {
		return dErrors.New(dErrors.CodeValidation, "username must be between 1-"+strconv.Itoa(usernameLimit)+" characters")
	}
	return nil
}

func validatePassword(password string) error {
	if !isASCII(password) {
		return dErrors.New(dErrors.CodeValidation, "password must use ASCII")
	}
	if len(password) > passwordLimit {
		return dErrors.New(dErrors.CodeValidation, "password must be at most "+strconv.Itoa(passwordLimit)+" characters")
	}
	if passwordEntropy(password) < minEntropy {
		return dErrors.New(dErrors.CodeValidation, "password is too weak")
	}
	return nil
}

func validateEmail(address string) error {
	if strings.TrimSpace(address) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !emailPattern.MatchString(address) {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	return nil
}
